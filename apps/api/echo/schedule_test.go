package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/educenter/core/user"
	"github.com/hoangvu/educenter/testutil"
)

func TestScheduleApi_ClassCRUD(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	course := testutil.CreateCourse(t, env.catRepo, "IELTS Foundation", teacher, 5000000, nil)
	adminToken := env.token(t, admin)

	var classID string

	t.Run("create", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/classes", adminToken, map[string]string{
			"class_name": "IELTS-A1", "room": "Room 2", "course_id": course.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)
		cls := data["class"].(map[string]interface{})
		assert.Equal(t, "IELTS-A1", cls["class_name"])
		assert.Equal(t, course.ID, cls["course_id"])
		classID = cls["id"].(string)
	})

	t.Run("create for unknown course", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/classes", adminToken, map[string]string{
			"class_name": "IELTS-A2", "room": "Room 3", "course_id": "nope",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/classes/"+classID, adminToken, map[string]string{
			"room": "Room 5",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		cls := data["class"].(map[string]interface{})
		assert.Equal(t, "Room 5", cls["room"])
		assert.Equal(t, "IELTS-A1", cls["class_name"])
	})

	t.Run("query by course", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/classes?course_id="+course.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		require.Len(t, data["classes"].([]interface{}), 1)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/v1/classes/"+classID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodGet, "/v1/classes/"+classID, adminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestScheduleApi_Roster(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "Dog", "hero@test.vn", "", user.RoleStudent, true)
	course := testutil.CreateCourse(t, env.catRepo, "IELTS Foundation", teacher, 5000000, nil)
	cls := testutil.CreateClass(t, env.clsRepo, "IELTS-A1", "Room 2", course.ID)
	adminToken := env.token(t, admin)

	t.Run("enroll via class", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/classes/"+cls.ID+"/students", adminToken, map[string]string{
			"student_id": student.ID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)
		enr := data["enrollment"].(map[string]interface{})
		assert.Equal(t, course.ID, enr["course_id"])
		assert.Equal(t, cls.ID, enr["class_id"])
	})

	t.Run("duplicate enrollment", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/classes/"+cls.ID+"/students", adminToken, map[string]string{
			"student_id": student.ID,
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("roster is joined with student info", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/classes/"+cls.ID+"/roster", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		roster := data["roster"].([]interface{})
		require.Len(t, roster, 1)
		entry := roster[0].(map[string]interface{})
		assert.Equal(t, student.ID, entry["student_id"])
		assert.Equal(t, "Hero Dog", entry["student_name"])
		assert.Equal(t, "unpaid", entry["payment_status"])
	})

	t.Run("delete blocked while roster is non-empty", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/v1/classes/"+cls.ID, adminToken, nil)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("remove student", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/v1/classes/"+cls.ID+"/students/"+student.ID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodGet, "/v1/classes/"+cls.ID+"/roster", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Empty(t, data["roster"].([]interface{}))
	})
}
