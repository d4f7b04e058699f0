package schedule

import (
	"time"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
)

// Class is a concrete scheduled instance of a Course in a specific room.
// Its schedule starts as a copy of the course template and may diverge.
// The roster is a view over the enrollment ledger, never a local set.
type Class struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"class_name"`
	Room     string                   `json:"room"`
	CourseID string                   `json:"course_id"`
	Schedule catalog.ScheduleTemplate `json:"schedule"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name     string                    `json:"class_name" validate:"required"`
	Room     string                    `json:"room" validate:"required"`
	CourseID string                    `json:"course_id" validate:"required"`
	Schedule *catalog.ScheduleTemplate `json:"schedule"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Room = core.CleanString(nc.Room)
	return core.Validate.Struct(nc)
}

// UpdateClass defines a partial Class update; nil fields are left untouched.
type UpdateClass struct {
	Name     *string                   `json:"class_name"`
	Room     *string                   `json:"room"`
	CourseID *string                   `json:"course_id"`
	Schedule *catalog.ScheduleTemplate `json:"schedule"`
}

func (uc *UpdateClass) Validate() error {
	return core.Validate.Struct(uc)
}

// RosterEntry is a read-model row of a class roster.
type RosterEntry struct {
	EnrollmentID  string    `json:"enrollment_id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name"`
	StudentEmail  string    `json:"student_email"`
	EnrolledAt    time.Time `json:"enrolled_date"`
	PaymentStatus string    `json:"payment_status"`
}

type QueryFilter struct {
	Search   string `query:"search"`
	CourseID string `query:"course_id"`
	Room     string `query:"room"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CourseID == "" && qf.Room == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
