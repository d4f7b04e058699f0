package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/educenter/core/user"
	"github.com/hoangvu/educenter/testutil"
)

func TestCatalogApi_CourseCRUD(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	adminToken := env.token(t, admin)

	var courseID string

	t.Run("create", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/courses", adminToken, map[string]interface{}{
			"title":         "IELTS Foundation",
			"instructor_id": teacher.ID,
			"price":         5000000,
			"schedule":      map[string]interface{}{"days_of_week": []string{"Monday", "Wednesday"}, "shift": "19:00 - 21:00"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)
		course := data["course"].(map[string]interface{})
		assert.Equal(t, "IELTS Foundation", course["title"])
		assert.Equal(t, "VND", course["currency"])
		instructor := course["instructor"].(map[string]interface{})
		assert.Equal(t, teacher.ID, instructor["id"])
		courseID = course["id"].(string)
	})

	t.Run("create with non-teacher instructor", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/courses", adminToken, map[string]interface{}{
			"title":         "Bad Course",
			"instructor_id": admin.ID,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		data := decode(t, rec)
		fields := data["message"].(map[string]interface{})
		assert.Contains(t, fields, "instructor_id")
	})

	t.Run("retrieve", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/courses/"+courseID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		course := data["course"].(map[string]interface{})
		assert.Equal(t, courseID, course["id"])
	})

	t.Run("update", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/courses/"+courseID, adminToken, map[string]interface{}{
			"price":          6000000,
			"max_enrollment": 12,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		course := data["course"].(map[string]interface{})
		assert.Equal(t, float64(6000000), course["price"])
		assert.Equal(t, float64(12), course["max_enrollment"])
		assert.Equal(t, "IELTS Foundation", course["title"])
	})

	t.Run("query", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/courses?search=ielts", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		courses := data["courses"].([]interface{})
		require.Len(t, courses, 1)
	})

	t.Run("delete blocked while a class exists", func(t *testing.T) {
		cls := testutil.CreateClass(t, env.clsRepo, "IELTS-A1", "Room 1", courseID)

		rec := env.request(t, http.MethodDelete, "/v1/courses/"+courseID, adminToken, nil)
		require.Equal(t, http.StatusConflict, rec.Code)

		rec = env.request(t, http.MethodDelete, "/v1/classes/"+cls.ID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodDelete, "/v1/courses/"+courseID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodGet, "/v1/courses/"+courseID, adminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCatalogApi_EnrolledStudents(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "Dog", "hero@test.vn", "", user.RoleStudent, true)
	course := testutil.CreateCourse(t, env.catRepo, "IELTS Foundation", teacher, 5000000, nil)
	adminToken := env.token(t, admin)

	rec := env.request(t, http.MethodPost, "/v1/enrollments", adminToken, map[string]string{
		"student_id": student.ID, "course_id": course.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.request(t, http.MethodGet, "/v1/courses/"+course.ID+"/students", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)
	students := data["students"].([]interface{})
	require.Len(t, students, 1)
	entry := students[0].(map[string]interface{})
	assert.Equal(t, student.ID, entry["student_id"])
	assert.Equal(t, "Hero Dog", entry["student_name"])
	assert.Equal(t, "hero@test.vn", entry["student_email"])

	rec = env.request(t, http.MethodGet, "/v1/courses/nope/students", adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogApi_Banners(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	course := testutil.CreateCourse(t, env.catRepo, "IELTS Foundation", teacher, 5000000, nil)
	adminToken := env.token(t, admin)

	t.Run("create requires an existing course", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/banners", adminToken, map[string]string{
			"course_id": "nope", "title": "Summer Sale",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	var bannerID string

	t.Run("create", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/banners", adminToken, map[string]interface{}{
			"course_id":   course.ID,
			"title":       "Summer Sale",
			"button_text": "Enroll now",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)
		banner := data["banner"].(map[string]interface{})
		assert.Equal(t, "Summer Sale", banner["title"])
		bannerID = banner["id"].(string)
	})

	t.Run("update", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/banners/"+bannerID, adminToken, map[string]string{
			"button_text": "Join today",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		banner := data["banner"].(map[string]interface{})
		assert.Equal(t, "Join today", banner["button_text"])
		assert.Equal(t, "Summer Sale", banner["title"])
	})

	t.Run("list and delete", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/banners", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		require.Len(t, data["banners"].([]interface{}), 1)

		rec = env.request(t, http.MethodDelete, "/v1/banners/"+bannerID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodGet, "/v1/banners/"+bannerID, adminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
