package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

type classRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"class_name"`
	Room      string    `db:"room"`
	CourseID  string    `db:"course_id"`
	Schedule  []byte    `db:"schedule"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func newClassRow(cls schedule.Class) (classRow, error) {
	row := classRow{
		ID:        cls.ID,
		Name:      cls.Name,
		Room:      cls.Room,
		CourseID:  cls.CourseID,
		CreatedAt: cls.CreatedAt,
		UpdatedAt: cls.UpdatedAt,
	}
	b, err := json.Marshal(cls.Schedule)
	if err != nil {
		return row, errors.Wrap(err, "encoding class schedule")
	}
	row.Schedule = b
	return row, nil
}

func (row classRow) class() (schedule.Class, error) {
	cls := schedule.Class{
		ID:        row.ID,
		Name:      row.Name,
		Room:      row.Room,
		CourseID:  row.CourseID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Schedule) > 0 {
		if err := json.Unmarshal(row.Schedule, &cls.Schedule); err != nil {
			return cls, errors.Wrap(err, "decoding class schedule")
		}
	}
	return cls, nil
}

func rowsToClasses(rows []classRow) ([]schedule.Class, error) {
	classes := make([]schedule.Class, 0, len(rows))
	for _, row := range rows {
		cls, err := row.class()
		if err != nil {
			return nil, err
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

const classColumns = `id, class_name, room, course_id, schedule, created_at, updated_at`

// rosterCount counts the class's active enrollments within the transaction.
func rosterCount(ctx context.Context, tx *sqlx.Tx, classID string) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM enrollment WHERE class_id = $1 AND status = 'active'`, classID)
	return n, err
}

func (repo *scheduleRepository) CreateClass(ctx context.Context, cls schedule.Class) (schedule.Class, error) {
	row, err := newClassRow(cls)
	if err != nil {
		return schedule.Class{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO class (id, class_name, room, course_id, schedule, created_at, updated_at)
		VALUES (:id, :class_name, :room, :course_id, :schedule, :created_at, :updated_at)`, row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return schedule.Class{}, catalog.ErrCourseNotFound
		}
		return schedule.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo *scheduleRepository) GetClassByID(ctx context.Context, id string) (schedule.Class, error) {
	var row classRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+classColumns+` FROM class WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return schedule.Class{}, schedule.ErrNotFound
	}
	if err != nil {
		return schedule.Class{}, errors.Wrap(err, "getting class")
	}
	return row.class()
}

func (repo *scheduleRepository) QueryAllClasses(ctx context.Context) ([]schedule.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+classColumns+` FROM class`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return rowsToClasses(rows)
}

func (repo *scheduleRepository) FilterClasses(ctx context.Context, filter schedule.QueryFilter) ([]schedule.Class, error) {
	q := `SELECT ` + classColumns + ` FROM class WHERE true`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		q += ` AND LOWER(class_name) LIKE ` + arg("%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.CourseID != "" {
		q += ` AND course_id = ` + arg(filter.CourseID)
	}
	if filter.Room != "" {
		q += ` AND LOWER(room) = LOWER(` + arg(filter.Room) + `)`
	}

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering classes")
	}
	return rowsToClasses(rows)
}

func (repo *scheduleRepository) UpdateClass(ctx context.Context, cls schedule.Class) (schedule.Class, error) {
	row, err := newClassRow(cls)
	if err != nil {
		return schedule.Class{}, err
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Class{}, errors.Wrap(err, "updating class")
	}
	defer func() { _ = tx.Rollback() }()

	var origCourseID string
	err = tx.GetContext(ctx, &origCourseID, `SELECT course_id FROM class WHERE id = $1 FOR UPDATE`, cls.ID)
	if err == sql.ErrNoRows {
		return schedule.Class{}, schedule.ErrNotFound
	}
	if err != nil {
		return schedule.Class{}, errors.Wrap(err, "updating class")
	}

	// re-binding a class with enrolled students would orphan its roster
	if cls.CourseID != origCourseID {
		n, err := rosterCount(ctx, tx, cls.ID)
		if err != nil {
			return schedule.Class{}, errors.Wrap(err, "updating class")
		}
		if n > 0 {
			return schedule.Class{}, schedule.ErrClassNotEmpty
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		UPDATE class SET class_name = :class_name, room = :room, course_id = :course_id,
			schedule = :schedule, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return schedule.Class{}, errors.Wrap(err, "updating class")
	}
	if err = tx.Commit(); err != nil {
		return schedule.Class{}, errors.Wrap(err, "updating class")
	}
	return cls, nil
}

func (repo *scheduleRepository) DeleteClass(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.GetContext(ctx, &exists, `SELECT true FROM class WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return schedule.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}

	n, err := rosterCount(ctx, tx, id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	if n > 0 {
		return schedule.ErrClassNotEmpty
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return errors.Wrap(tx.Commit(), "deleting class")
}
