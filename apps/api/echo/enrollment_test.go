package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/educenter/core/user"
	"github.com/hoangvu/educenter/testutil"
)

func TestEnrollmentApi_Enroll(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "Dog", "hero@test.vn", "", user.RoleStudent, true)
	villain := testutil.CreateUser(t, env.usrRepo, "Villain", "Cat", "villain@test.vn", "", user.RoleStudent, true)
	tiny := testutil.CreateCourse(t, env.catRepo, "Tiny Workshop", teacher, 2000000, testutil.IntPtr(1))
	adminToken := env.token(t, admin)

	t.Run("ok", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/enrollments", adminToken, map[string]interface{}{
			"student_id": hero.ID, "course_id": tiny.ID, "is_discount": true,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)
		enr := data["enrollment"].(map[string]interface{})
		assert.Equal(t, "active", enr["status"])
		assert.Equal(t, "unpaid", enr["payment_status"])
		assert.Equal(t, true, enr["is_discount"])
	})

	t.Run("course is full", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/enrollments", adminToken, map[string]string{
			"student_id": villain.ID, "course_id": tiny.ID,
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, "course is at max enrollment capacity", data["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/enrollments", adminToken, map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		data := decode(t, rec)
		fields := data["message"].(map[string]interface{})
		assert.Contains(t, fields, "student_id")
		assert.Contains(t, fields, "course_id")
	})

	t.Run("unknown course", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/enrollments", adminToken, map[string]string{
			"student_id": villain.ID, "course_id": "nope",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEnrollmentApi_PaymentAndTransfer(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "Dog", "hero@test.vn", "", user.RoleStudent, true)
	ielts := testutil.CreateCourse(t, env.catRepo, "IELTS Foundation", teacher, 5000000, nil)
	toeic := testutil.CreateCourse(t, env.catRepo, "TOEIC Prep", teacher, 3000000, nil)
	adminToken := env.token(t, admin)

	rec := env.request(t, http.MethodPost, "/v1/enrollments", adminToken, map[string]string{
		"student_id": hero.ID, "course_id": ielts.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	enrID := decode(t, rec)["enrollment"].(map[string]interface{})["id"].(string)

	t.Run("invalid payment status", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/enrollments/"+enrID+"/payment", adminToken, map[string]string{
			"payment_status": "maybe",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mark paid", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/enrollments/"+enrID+"/payment", adminToken, map[string]string{
			"payment_status": "paid",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		enr := data["enrollment"].(map[string]interface{})
		assert.Equal(t, "paid", enr["payment_status"])
	})

	t.Run("set discount", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/enrollments/"+enrID+"/discount", adminToken, map[string]interface{}{
			"is_discount": true,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		enr := data["enrollment"].(map[string]interface{})
		assert.Equal(t, true, enr["is_discount"])
	})

	t.Run("transfer", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/enrollments/transfer", adminToken, map[string]string{
			"student_id": hero.ID, "from_course_id": ielts.ID, "to_course_id": toeic.ID,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		enr := data["enrollment"].(map[string]interface{})
		assert.Equal(t, toeic.ID, enr["course_id"])
		assert.Equal(t, "unpaid", enr["payment_status"])
		assert.Equal(t, true, enr["is_discount"])
	})

	t.Run("active filter sees only the target course", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/enrollments?student_id="+hero.ID+"&status=active", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		enrollments := data["enrollments"].([]interface{})
		require.Len(t, enrollments, 1)
		assert.Equal(t, toeic.ID, enrollments[0].(map[string]interface{})["course_id"])
	})

	t.Run("outstanding", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/enrollments/outstanding", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.InDelta(t, 3000000*0.9, data["outstanding"].(float64), 0.01)
	})

	t.Run("remove via query params", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/v1/enrollments?course_id="+toeic.ID+"&student_id="+hero.ID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodGet, "/v1/enrollments?student_id="+hero.ID+"&status=active", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Empty(t, data["enrollments"].([]interface{}))
	})
}
