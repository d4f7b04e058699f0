package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone_number"`
	Role         string    `db:"role"`
	AvatarURL    string    `db:"avatar_url"`
	IsActive     bool      `db:"is_active"`
	PasswordHash []byte    `db:"password_hash"`
	Student      []byte    `db:"student"`
	Parent       []byte    `db:"parent"`
	Employee     []byte    `db:"employee"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func newUserRow(usr user.User) (userRow, error) {
	row := userRow{
		ID:           usr.ID,
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		Phone:        usr.Phone,
		Role:         usr.Role,
		AvatarURL:    usr.AvatarURL,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
	var err error
	if usr.Student != nil {
		if row.Student, err = json.Marshal(usr.Student); err != nil {
			return row, errors.Wrap(err, "encoding student profile")
		}
	}
	if usr.Parent != nil {
		if row.Parent, err = json.Marshal(usr.Parent); err != nil {
			return row, errors.Wrap(err, "encoding parent profile")
		}
	}
	if usr.Employee != nil {
		if row.Employee, err = json.Marshal(usr.Employee); err != nil {
			return row, errors.Wrap(err, "encoding employee profile")
		}
	}
	return row, nil
}

func (row userRow) user() (user.User, error) {
	usr := user.User{
		ID:           row.ID,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Email:        row.Email,
		Phone:        row.Phone,
		Role:         row.Role,
		AvatarURL:    row.AvatarURL,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.Student) > 0 {
		usr.Student = new(user.StudentProfile)
		if err := json.Unmarshal(row.Student, usr.Student); err != nil {
			return usr, errors.Wrap(err, "decoding student profile")
		}
	}
	if len(row.Parent) > 0 {
		usr.Parent = new(user.ParentProfile)
		if err := json.Unmarshal(row.Parent, usr.Parent); err != nil {
			return usr, errors.Wrap(err, "decoding parent profile")
		}
	}
	if len(row.Employee) > 0 {
		usr.Employee = new(user.EmployeeProfile)
		if err := json.Unmarshal(row.Employee, usr.Employee); err != nil {
			return usr, errors.Wrap(err, "decoding employee profile")
		}
	}
	return usr, nil
}

func rowsToUsers(rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := row.user()
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

const userColumns = `id, first_name, last_name, email, phone_number, role, avatar_url,
	is_active, password_hash, student, parent, employee, created_at, updated_at`

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	q := `SELECT COUNT(*) FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q += ` AND NOT (id = ANY($2))`
		args = append(args, pqStringArray(ids))
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	row, err := newUserRow(usr)
	if err != nil {
		return user.User{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM "user" WHERE email = $1`, usr.Email); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	if count > 0 {
		return user.User{}, user.ErrEmailExists
	}
	if usr.Student != nil && len(usr.Student.ParentIDs) > 0 {
		var parents int
		q := `SELECT COUNT(*) FROM "user" WHERE role = 'parent:' AND id = ANY($1)`
		if err = tx.GetContext(ctx, &parents, q, pqStringArray(usr.Student.ParentIDs)); err != nil {
			return user.User{}, errors.Wrap(err, "creating user")
		}
		if parents != len(usr.Student.ParentIDs) {
			return user.User{}, user.ErrParentNotFound
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO "user" (id, first_name, last_name, email, phone_number, role, avatar_url,
			is_active, password_hash, student, parent, employee, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :email, :phone_number, :role, :avatar_url,
			:is_active, :password_hash, :student, :parent, :employee, :created_at, :updated_at)`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	if err = tx.Commit(); err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM "user"`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return rowsToUsers(rows)
}

func (repo *userRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM "user" WHERE `+where, args...)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user()
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, `id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `email = $1`, email)
}

func (repo *userRepository) GetParentByPhone(ctx context.Context, phone string) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM "user" WHERE role = 'parent:' AND phone_number = $1`
	err := repo.db.GetContext(ctx, &row, q, phone)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrParentNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting parent by phone")
	}
	return row.user()
}

func (repo *userRepository) QueryChildren(ctx context.Context, parentID string) ([]user.User, error) {
	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM "user"
		WHERE role = 'student:' AND student->'parent_ids' @> to_jsonb($1::text)`
	if err := repo.db.SelectContext(ctx, &rows, q, parentID); err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	return rowsToUsers(rows)
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user" WHERE true`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		q += ` AND (LOWER(first_name || ' ' || last_name) LIKE ` + p + ` OR LOWER(email) LIKE ` + p + `)`
	}
	if filter.Role != "" {
		q += ` AND role LIKE ` + arg(filter.Role+"%")
	}
	if filter.IsActive != nil {
		q += ` AND is_active = ` + arg(*filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		q += ` AND created_at >= ` + arg(filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		q += ` AND created_at <= ` + arg(filter.CreatedTo.UTC())
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return rowsToUsers(rows)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}

	if usr.PasswordHash == nil {
		usr.PasswordHash = orig.PasswordHash
	}
	if isActive != nil {
		usr.IsActive = *isActive
	} else {
		usr.IsActive = orig.IsActive
	}
	usr.CreatedAt = orig.CreatedAt

	row, err := newUserRow(usr)
	if err != nil {
		return user.User{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE "user" SET first_name = :first_name, last_name = :last_name, email = :email,
			phone_number = :phone_number, role = :role, avatar_url = :avatar_url,
			is_active = :is_active, password_hash = :password_hash, student = :student,
			parent = :parent, employee = :employee, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pqStringArray(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
