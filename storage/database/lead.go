package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hoangvu/educenter/core/lead"
)

type leadRepository struct {
	db *sqlx.DB
}

var _ lead.Repository = (*leadRepository)(nil) // interface compliance check

func NewLeadRepository(db *sqlx.DB) lead.Repository {
	return &leadRepository{db: db}
}

type leadRow struct {
	ID            string    `db:"id"`
	ParentName    string    `db:"parent_name"`
	ParentEmail   string    `db:"parent_email"`
	ParentPhone   string    `db:"parent_phone"`
	StudentName   string    `db:"student_name"`
	CourseTitles  []byte    `db:"course_titles"`
	Status        string    `db:"status"`
	PaymentStatus string    `db:"payment_status"`
	IsDiscount    bool      `db:"is_discount"`
	CreatedAt     time.Time `db:"created_at"`
}

func newLeadRow(ld lead.Lead) (leadRow, error) {
	row := leadRow{
		ID:            ld.ID,
		ParentName:    ld.ParentName,
		ParentEmail:   ld.ParentEmail,
		ParentPhone:   ld.ParentPhone,
		StudentName:   ld.StudentName,
		Status:        ld.Status,
		PaymentStatus: ld.PaymentStatus,
		IsDiscount:    ld.IsDiscount,
		CreatedAt:     ld.CreatedAt,
	}
	b, err := json.Marshal(ld.CourseTitles)
	if err != nil {
		return row, errors.Wrap(err, "encoding lead course titles")
	}
	row.CourseTitles = b
	return row, nil
}

func (row leadRow) lead() (lead.Lead, error) {
	ld := lead.Lead{
		ID:            row.ID,
		ParentName:    row.ParentName,
		ParentEmail:   row.ParentEmail,
		ParentPhone:   row.ParentPhone,
		StudentName:   row.StudentName,
		Status:        row.Status,
		PaymentStatus: row.PaymentStatus,
		IsDiscount:    row.IsDiscount,
		CreatedAt:     row.CreatedAt,
	}
	if len(row.CourseTitles) > 0 {
		if err := json.Unmarshal(row.CourseTitles, &ld.CourseTitles); err != nil {
			return ld, errors.Wrap(err, "decoding lead course titles")
		}
	}
	return ld, nil
}

const leadColumns = `id, parent_name, parent_email, parent_phone, student_name, course_titles,
	status, payment_status, is_discount, created_at`

func (repo *leadRepository) CreateLead(ctx context.Context, ld lead.Lead) (lead.Lead, error) {
	row, err := newLeadRow(ld)
	if err != nil {
		return lead.Lead{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO lead (id, parent_name, parent_email, parent_phone, student_name, course_titles,
			status, payment_status, is_discount, created_at)
		VALUES (:id, :parent_name, :parent_email, :parent_phone, :student_name, :course_titles,
			:status, :payment_status, :is_discount, :created_at)`, row)
	if err != nil {
		return lead.Lead{}, errors.Wrap(err, "creating lead")
	}
	return ld, nil
}

func (repo *leadRepository) GetLeadByID(ctx context.Context, id string) (lead.Lead, error) {
	var row leadRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+leadColumns+` FROM lead WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return lead.Lead{}, lead.ErrNotFound
	}
	if err != nil {
		return lead.Lead{}, errors.Wrap(err, "getting lead")
	}
	return row.lead()
}

func (repo *leadRepository) QueryAllLeads(ctx context.Context) ([]lead.Lead, error) {
	var rows []leadRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+leadColumns+` FROM lead`); err != nil {
		return nil, errors.Wrap(err, "querying leads")
	}
	leads := make([]lead.Lead, 0, len(rows))
	for _, row := range rows {
		ld, err := row.lead()
		if err != nil {
			return nil, err
		}
		leads = append(leads, ld)
	}
	return leads, nil
}

func (repo *leadRepository) FilterLeads(ctx context.Context, filter lead.QueryFilter) ([]lead.Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM lead WHERE true`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		q += ` AND (LOWER(parent_name) LIKE ` + p + ` OR LOWER(student_name) LIKE ` + p +
			` OR parent_phone LIKE ` + p + `)`
	}
	if filter.Status != "" {
		q += ` AND status = ` + arg(filter.Status)
	}
	if filter.PaymentStatus != "" {
		q += ` AND payment_status = ` + arg(filter.PaymentStatus)
	}

	var rows []leadRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering leads")
	}
	leads := make([]lead.Lead, 0, len(rows))
	for _, row := range rows {
		ld, err := row.lead()
		if err != nil {
			return nil, err
		}
		leads = append(leads, ld)
	}
	return leads, nil
}

func (repo *leadRepository) UpdateLead(ctx context.Context, ld lead.Lead) (lead.Lead, error) {
	row, err := newLeadRow(ld)
	if err != nil {
		return lead.Lead{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE lead SET parent_name = :parent_name, parent_email = :parent_email,
			parent_phone = :parent_phone, student_name = :student_name,
			course_titles = :course_titles, status = :status,
			payment_status = :payment_status, is_discount = :is_discount
		WHERE id = :id`, row)
	if err != nil {
		return lead.Lead{}, errors.Wrap(err, "updating lead")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lead.Lead{}, lead.ErrNotFound
	}
	return ld, nil
}
