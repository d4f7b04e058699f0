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
)

type catalogRepository struct {
	db *sqlx.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *sqlx.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

type courseRow struct {
	ID            string        `db:"id"`
	Title         string        `db:"title"`
	Description   string        `db:"description"`
	Targets       []byte        `db:"targets"`
	Instructor    []byte        `db:"instructor"`
	Category      string        `db:"category"`
	Level         string        `db:"level"`
	Price         float64       `db:"price"`
	Currency      string        `db:"currency"`
	Status        string        `db:"status"`
	ThumbnailURL  string        `db:"thumbnail_url"`
	MaxEnrollment sql.NullInt64 `db:"max_enrollment"`
	Schedule      []byte        `db:"schedule"`
	Duration      []byte        `db:"duration"`
	Content       []byte        `db:"content"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func newCourseRow(course catalog.Course) (courseRow, error) {
	row := courseRow{
		ID:           course.ID,
		Title:        course.Title,
		Description:  course.Description,
		Category:     course.Category,
		Level:        course.Level,
		Price:        course.Price,
		Currency:     course.Currency,
		Status:       course.Status,
		ThumbnailURL: course.ThumbnailURL,
		CreatedAt:    course.CreatedAt,
		UpdatedAt:    course.UpdatedAt,
	}
	if course.MaxEnrollment != nil {
		row.MaxEnrollment = sql.NullInt64{Int64: int64(*course.MaxEnrollment), Valid: true}
	}
	for _, enc := range []struct {
		dst *[]byte
		src interface{}
	}{
		{&row.Targets, course.Targets},
		{&row.Instructor, course.Instructor},
		{&row.Schedule, course.Schedule},
		{&row.Duration, course.Duration},
		{&row.Content, course.Content},
	} {
		b, err := json.Marshal(enc.src)
		if err != nil {
			return row, errors.Wrap(err, "encoding course")
		}
		*enc.dst = b
	}
	return row, nil
}

func (row courseRow) course() (catalog.Course, error) {
	course := catalog.Course{
		ID:           row.ID,
		Title:        row.Title,
		Description:  row.Description,
		Category:     row.Category,
		Level:        row.Level,
		Price:        row.Price,
		Currency:     row.Currency,
		Status:       row.Status,
		ThumbnailURL: row.ThumbnailURL,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.MaxEnrollment.Valid {
		max := int(row.MaxEnrollment.Int64)
		course.MaxEnrollment = &max
	}
	for _, dec := range []struct {
		src []byte
		dst interface{}
	}{
		{row.Targets, &course.Targets},
		{row.Instructor, &course.Instructor},
		{row.Schedule, &course.Schedule},
		{row.Duration, &course.Duration},
		{row.Content, &course.Content},
	} {
		if len(dec.src) == 0 {
			continue
		}
		if err := json.Unmarshal(dec.src, dec.dst); err != nil {
			return course, errors.Wrap(err, "decoding course")
		}
	}
	return course, nil
}

func rowsToCourses(rows []courseRow) ([]catalog.Course, error) {
	courses := make([]catalog.Course, 0, len(rows))
	for _, row := range rows {
		course, err := row.course()
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, nil
}

const courseColumns = `id, title, description, targets, instructor, category, level, price,
	currency, status, thumbnail_url, max_enrollment, schedule, duration, content, created_at, updated_at`

func (repo *catalogRepository) CreateCourse(ctx context.Context, course catalog.Course) (catalog.Course, error) {
	row, err := newCourseRow(course)
	if err != nil {
		return catalog.Course{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO course (id, title, description, targets, instructor, category, level, price,
			currency, status, thumbnail_url, max_enrollment, schedule, duration, content, created_at, updated_at)
		VALUES (:id, :title, :description, :targets, :instructor, :category, :level, :price,
			:currency, :status, :thumbnail_url, :max_enrollment, :schedule, :duration, :content, :created_at, :updated_at)`, row)
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "creating course")
	}
	return course, nil
}

func (repo *catalogRepository) GetCourseByID(ctx context.Context, id string) (catalog.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "getting course")
	}
	return row.course()
}

func (repo *catalogRepository) QueryAllCourses(ctx context.Context) ([]catalog.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+courseColumns+` FROM course`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return rowsToCourses(rows)
}

func (repo *catalogRepository) FilterCourses(ctx context.Context, filter catalog.QueryFilter) ([]catalog.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM course WHERE true`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		q += ` AND (LOWER(title) LIKE ` + p + ` OR LOWER(description) LIKE ` + p + `)`
	}
	if filter.Category != "" {
		q += ` AND LOWER(category) = LOWER(` + arg(filter.Category) + `)`
	}
	if filter.Level != "" {
		q += ` AND LOWER(level) = LOWER(` + arg(filter.Level) + `)`
	}
	if filter.Status != "" {
		q += ` AND status = ` + arg(filter.Status)
	}

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	return rowsToCourses(rows)
}

func (repo *catalogRepository) UpdateCourse(ctx context.Context, course catalog.Course) (catalog.Course, error) {
	row, err := newCourseRow(course)
	if err != nil {
		return catalog.Course{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE course SET title = :title, description = :description, targets = :targets,
			instructor = :instructor, category = :category, level = :level, price = :price,
			currency = :currency, status = :status, thumbnail_url = :thumbnail_url,
			max_enrollment = :max_enrollment, schedule = :schedule, duration = :duration,
			content = :content, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	return course, nil
}

func (repo *catalogRepository) DeleteCourse(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	defer func() { _ = tx.Rollback() }()

	var classes int
	if err = tx.GetContext(ctx, &classes, `SELECT COUNT(*) FROM class WHERE course_id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if classes > 0 {
		return catalog.ErrCourseInUse
	}

	// closed enrollments block too: enrollment.course_id is ON DELETE RESTRICT
	var enrollments int
	if err = tx.GetContext(ctx, &enrollments, `SELECT COUNT(*) FROM enrollment WHERE course_id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if enrollments > 0 {
		return catalog.ErrCourseHasEnrollments
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return catalog.ErrCourseHasEnrollments
		}
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrCourseNotFound
	}
	return errors.Wrap(tx.Commit(), "deleting course")
}

type bannerRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	ButtonText  string    `db:"button_text"`
	TextColor   string    `db:"text_color"`
	ButtonColor string    `db:"button_color"`
	Gradient    string    `db:"gradient"`
	Number      int       `db:"number"`
	ImageURL    string    `db:"image_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func newBannerRow(banner catalog.Banner) bannerRow {
	return bannerRow(banner)
}

func (row bannerRow) banner() catalog.Banner {
	return catalog.Banner(row)
}

const bannerColumns = `id, course_id, title, description, button_text, text_color, button_color,
	gradient, number, image_url, created_at`

func (repo *catalogRepository) CreateBanner(ctx context.Context, banner catalog.Banner) (catalog.Banner, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO banner (id, course_id, title, description, button_text, text_color, button_color,
			gradient, number, image_url, created_at)
		VALUES (:id, :course_id, :title, :description, :button_text, :text_color, :button_color,
			:gradient, :number, :image_url, :created_at)`, newBannerRow(banner))
	if err != nil {
		return catalog.Banner{}, errors.Wrap(err, "creating banner")
	}
	return banner, nil
}

func (repo *catalogRepository) GetBannerByID(ctx context.Context, id string) (catalog.Banner, error) {
	var row bannerRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+bannerColumns+` FROM banner WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return catalog.Banner{}, catalog.ErrBannerNotFound
	}
	if err != nil {
		return catalog.Banner{}, errors.Wrap(err, "getting banner")
	}
	return row.banner(), nil
}

func (repo *catalogRepository) QueryAllBanners(ctx context.Context) ([]catalog.Banner, error) {
	var rows []bannerRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+bannerColumns+` FROM banner ORDER BY number`); err != nil {
		return nil, errors.Wrap(err, "querying banners")
	}
	banners := make([]catalog.Banner, 0, len(rows))
	for _, row := range rows {
		banners = append(banners, row.banner())
	}
	return banners, nil
}

func (repo *catalogRepository) UpdateBanner(ctx context.Context, banner catalog.Banner) (catalog.Banner, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE banner SET course_id = :course_id, title = :title, description = :description,
			button_text = :button_text, text_color = :text_color, button_color = :button_color,
			gradient = :gradient, number = :number, image_url = :image_url
		WHERE id = :id`, newBannerRow(banner))
	if err != nil {
		return catalog.Banner{}, errors.Wrap(err, "updating banner")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.Banner{}, catalog.ErrBannerNotFound
	}
	return banner, nil
}

func (repo *catalogRepository) DeleteBanner(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM banner WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting banner")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrBannerNotFound
	}
	return nil
}
