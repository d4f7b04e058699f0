package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/schedule"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

type enrollmentRow struct {
	ID            string       `db:"id"`
	StudentID     string       `db:"student_id"`
	CourseID      string       `db:"course_id"`
	ClassID       string       `db:"class_id"`
	EnrolledAt    time.Time    `db:"enrolled_at"`
	PaymentStatus string       `db:"payment_status"`
	Discount      bool         `db:"discount"`
	Status        string       `db:"status"`
	ClosedAt      sql.NullTime `db:"closed_at"`
}

func newEnrollmentRow(enr enrollment.Enrollment) enrollmentRow {
	row := enrollmentRow{
		ID:            enr.ID,
		StudentID:     enr.StudentID,
		CourseID:      enr.CourseID,
		ClassID:       enr.ClassID,
		EnrolledAt:    enr.EnrolledAt,
		PaymentStatus: enr.PaymentStatus,
		Discount:      enr.Discount,
		Status:        enr.Status,
	}
	if enr.ClosedAt != nil {
		row.ClosedAt = sql.NullTime{Time: *enr.ClosedAt, Valid: true}
	}
	return row
}

func (row enrollmentRow) enrollment() enrollment.Enrollment {
	enr := enrollment.Enrollment{
		ID:            row.ID,
		StudentID:     row.StudentID,
		CourseID:      row.CourseID,
		ClassID:       row.ClassID,
		EnrolledAt:    row.EnrolledAt,
		PaymentStatus: row.PaymentStatus,
		Discount:      row.Discount,
		Status:        row.Status,
	}
	if row.ClosedAt.Valid {
		t := row.ClosedAt.Time
		enr.ClosedAt = &t
	}
	return enr
}

const enrollmentColumns = `id, student_id, course_id, class_id, enrolled_at, payment_status,
	discount, status, closed_at`

// checkInsert runs the capacity, uniqueness and class-binding checks for a
// prospective enrollment. The course row is locked so the capacity count
// stays valid until the transaction commits.
func checkInsert(ctx context.Context, tx *sqlx.Tx, courseID, studentID, classID string) error {
	var maxEnrollment sql.NullInt64
	err := tx.GetContext(ctx, &maxEnrollment,
		`SELECT max_enrollment FROM course WHERE id = $1 FOR UPDATE`, courseID)
	if err == sql.ErrNoRows {
		return catalog.ErrCourseNotFound
	}
	if err != nil {
		return errors.Wrap(err, "checking course")
	}

	// duplicate before capacity, matching the in-memory store
	var dup int
	err = tx.GetContext(ctx, &dup, `
		SELECT COUNT(*) FROM enrollment
		WHERE course_id = $1 AND student_id = $2 AND status = 'active'`, courseID, studentID)
	if err != nil {
		return errors.Wrap(err, "checking duplicate enrollment")
	}
	if dup > 0 {
		return enrollment.ErrAlreadyEnrolled
	}

	var active int
	err = tx.GetContext(ctx, &active, `
		SELECT COUNT(*) FROM enrollment WHERE course_id = $1 AND status = 'active'`, courseID)
	if err != nil {
		return errors.Wrap(err, "counting enrollments")
	}
	if maxEnrollment.Valid && int64(active) >= maxEnrollment.Int64 {
		return enrollment.ErrCourseFull
	}

	if classID != "" {
		var classCourseID string
		err = tx.GetContext(ctx, &classCourseID, `SELECT course_id FROM class WHERE id = $1`, classID)
		if err == sql.ErrNoRows {
			return schedule.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "checking class")
		}
		if classCourseID != courseID {
			return enrollment.ErrClassMismatch
		}
	}
	return nil
}

func insertEnrollment(ctx context.Context, tx *sqlx.Tx, enr enrollment.Enrollment) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, student_id, course_id, class_id, enrolled_at, payment_status,
			discount, status, closed_at)
		VALUES (:id, :student_id, :course_id, :class_id, :enrolled_at, :payment_status,
			:discount, :status, :closed_at)`, newEnrollmentRow(enr))
	if isUniqueViolation(err) {
		return enrollment.ErrAlreadyEnrolled
	}
	return errors.Wrap(err, "inserting enrollment")
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	defer func() { _ = tx.Rollback() }()

	if err = checkInsert(ctx, tx, enr.CourseID, enr.StudentID, enr.ClassID); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = insertEnrollment(ctx, tx, enr); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) CloseEnrollment(ctx context.Context, courseID, studentID string) error {
	// closing an absent enrollment is a no-op
	_, err := repo.db.ExecContext(ctx, `
		UPDATE enrollment SET status = 'closed', closed_at = $1
		WHERE course_id = $2 AND student_id = $3 AND status = 'active'`,
		time.Now().UTC(), courseID, studentID)
	return errors.Wrap(err, "closing enrollment")
}

func (repo *enrollmentRepository) TransferEnrollment(ctx context.Context, studentID, fromCourseID, toCourseID string) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "transferring enrollment")
	}
	defer func() { _ = tx.Rollback() }()

	var src enrollmentRow
	err = tx.GetContext(ctx, &src, `
		SELECT `+enrollmentColumns+` FROM enrollment
		WHERE course_id = $1 AND student_id = $2 AND status = 'active' FOR UPDATE`,
		fromCourseID, studentID)
	if err == sql.ErrNoRows {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "transferring enrollment")
	}

	if err = checkInsert(ctx, tx, toCourseID, studentID, ""); err != nil {
		return enrollment.Enrollment{}, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE enrollment SET status = 'closed', closed_at = $1 WHERE id = $2`, now, src.ID)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "transferring enrollment")
	}

	enr := enrollment.Enrollment{
		ID:            uuid.New().String(),
		StudentID:     studentID,
		CourseID:      toCourseID,
		EnrolledAt:    now,
		PaymentStatus: enrollment.PaymentUnpaid,
		Discount:      src.Discount,
		Status:        enrollment.StatusActive,
	}
	if err = insertEnrollment(ctx, tx, enr); err != nil {
		return enrollment.Enrollment{}, err
	}
	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "transferring enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+enrollmentColumns+` FROM enrollment WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE enrollment SET class_id = :class_id, payment_status = :payment_status,
			discount = :discount, status = :status, closed_at = :closed_at
		WHERE id = :id`, newEnrollmentRow(enr))
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return enr, nil
}

func (repo *enrollmentRepository) FilterEnrollments(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE true`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.StudentID != "" {
		q += ` AND student_id = ` + arg(filter.StudentID)
	}
	if filter.CourseID != "" {
		q += ` AND course_id = ` + arg(filter.CourseID)
	}
	if filter.ClassID != "" {
		q += ` AND class_id = ` + arg(filter.ClassID)
	}
	if filter.PaymentStatus != "" {
		q += ` AND payment_status = ` + arg(filter.PaymentStatus)
	}
	if filter.Status != "" {
		q += ` AND status = ` + arg(filter.Status)
	}

	var rows []enrollmentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}
	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.enrollment())
	}
	return enrollments, nil
}
