package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/educenter/core/user"
	"github.com/hoangvu/educenter/testutil"
)

func TestUserApi_Login(t *testing.T) {
	env := newTestEnv(t)

	testutil.CreateUser(t, env.usrRepo, "User", "Awe", "awe@test.vn", "s3cret", user.RoleParent, true)
	testutil.CreateUser(t, env.usrRepo, "Gone", "User", "gone@test.vn", "s3cret", user.RoleParent, false)

	t.Run("ok", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", map[string]string{
			"email": "AWE@test.vn", "password": "s3cret",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, true, data["success"])
		assert.NotEmpty(t, data["token"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", map[string]string{
			"email": "awe@test.vn", "password": "nope",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, "authentication failed", data["message"])
	})

	t.Run("deactivated account", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", map[string]string{
			"email": "gone@test.vn", "password": "s3cret",
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, "account deactivated", data["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users/login", "", map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserApi_Create(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	adminToken := env.token(t, admin)

	t.Run("ok", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users", adminToken, map[string]interface{}{
			"first_name":       "Mai",
			"last_name":        "Tran",
			"email":            "mai@test.vn",
			"password":         "Brightm00n!",
			"password_confirm": "Brightm00n!",
			"role":             user.RoleParent,
			"phone_number":     "0912345678",
			"address":          map[string]string{"ward": "Ward 5", "city": "HCMC"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, true, data["success"])
		assert.Equal(t, "user created", data["message"])
		usr, ok := data["user"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "mai@test.vn", usr["email"])
		assert.NotContains(t, usr, "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/v1/users", adminToken, map[string]interface{}{
			"first_name":       "Mai",
			"last_name":        "Tran",
			"email":            "mai@test.vn",
			"password":         "Brightm00n!",
			"password_confirm": "Brightm00n!",
			"role":             user.RoleParent,
			"address":          map[string]string{"ward": "Ward 5", "city": "HCMC"},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		data := decode(t, rec)
		fields, ok := data["message"].(map[string]interface{})
		require.True(t, ok)
		assert.Contains(t, fields, "email")
	})
}

func TestUserApi_DetailAccess(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "Dog", "hero@test.vn", "", user.RoleStudent, true)
	other := testutil.CreateUser(t, env.usrRepo, "Other", "Kid", "other@test.vn", "", user.RoleStudent, true)

	studentToken := env.token(t, student)
	adminToken := env.token(t, admin)

	t.Run("users can read their own profile", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/users/"+student.ID, studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		usr := data["user"].(map[string]interface{})
		assert.Equal(t, student.ID, usr["id"])
	})

	t.Run("users cannot see other profiles", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/users/"+other.ID, studentToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("employees can see any profile", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/users/"+other.ID, adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-admins cannot change email or active flag", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/users/"+student.ID, studentToken, map[string]interface{}{
			"is_active": false,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("users can update their own name", func(t *testing.T) {
		rec := env.request(t, http.MethodPut, "/v1/users/"+student.ID, studentToken, map[string]interface{}{
			"first_name": "Updated",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		usr := data["user"].(map[string]interface{})
		assert.Equal(t, "Updated", usr["first_name"])
	})

	t.Run("admins cannot delete themselves", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/v1/users/"+admin.ID, adminToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("role change is admin-only", func(t *testing.T) {
		teacher := testutil.CreateUser(t, env.usrRepo, "Teach", "Er", "teach@test.vn", "", user.RoleEmployeeTeacher, true)
		rec := env.request(t, http.MethodPut, "/v1/users/"+other.ID+"/role", env.token(t, teacher), map[string]string{
			"role": user.RoleParent,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)

		// the record is re-validated under the new role; with no parent
		// profile on file the change is refused with field errors
		rec = env.request(t, http.MethodPut, "/v1/users/"+other.ID+"/role", adminToken, map[string]string{
			"role": user.RoleParent,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		data := decode(t, rec)
		fields := data["message"].(map[string]interface{})
		assert.Contains(t, fields, "address.ward")
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		rec := env.request(t, http.MethodDelete, "/v1/users/"+other.ID, adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.request(t, http.MethodGet, "/v1/users/"+other.ID, adminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUserApi_QueryOrdering(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Zed", "Boss", "zed@test.vn", "", user.RoleEmployeeAdmin, true)
	testutil.CreateUser(t, env.usrRepo, "Anna", "Lee", "anna@test.vn", "", user.RoleParent, true)
	testutil.CreateUser(t, env.usrRepo, "Minh", "Ngo", "minh@test.vn", "", user.RoleParent, true)

	first := func(data map[string]interface{}) []string {
		users := data["users"].([]interface{})
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.(map[string]interface{})["first_name"].(string))
		}
		return names
	}

	rec := env.request(t, http.MethodGet, "/v1/users?ordering=first_name", env.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Anna", "Minh", "Zed"}, first(decode(t, rec)))

	rec = env.request(t, http.MethodGet, "/v1/users?ordering=-first_name", env.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Zed", "Minh", "Anna"}, first(decode(t, rec)))
}

func TestUserApi_ParentExists(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)
	testutil.CreateParent(t, env.usrRepo, "Linh", "linh@test.vn", "0912345678")
	adminToken := env.token(t, admin)

	t.Run("bad phone", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/users/parent-exists?phone=123", adminToken, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exists", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/users/parent-exists?phone=0912345678", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, true, data["exists"])
	})

	t.Run("does not exist", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/v1/users/parent-exists?phone=0900000000", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec)
		assert.Equal(t, false, data["exists"])
	})
}

func TestUserApi_Roles(t *testing.T) {
	env := newTestEnv(t)

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "Boss", "admin@test.vn", "", user.RoleEmployeeAdmin, true)

	rec := env.request(t, http.MethodGet, "/v1/users/roles", env.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)
	roles := data["roles"].([]interface{})
	assert.Len(t, roles, len(user.Roles))
}
