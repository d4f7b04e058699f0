package catalog

import (
	"time"

	"github.com/hoangvu/educenter/core"
)

// Course lifecycle statuses
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var Statuses = []string{StatusDraft, StatusActive, StatusInactive}

// Shifts is the fixed enumeration of class time ranges.
var Shifts = []string{
	"07:30 - 09:30",
	"09:45 - 11:45",
	"14:00 - 16:00",
	"16:15 - 18:15",
	"19:00 - 21:00",
}

var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Instructor is a denormalized reference to a teaching employee.
type Instructor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ScheduleTemplate struct {
	DaysOfWeek []string `json:"days_of_week" validate:"omitempty,dive,weekday"`
	Shift      string   `json:"shift" validate:"omitempty,shift"`
}

type Duration struct {
	TotalHours int        `json:"total_hours" validate:"omitempty,gte=0"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

type Lesson struct {
	Title           string `json:"title" validate:"required"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gte=0"`
}

type Section struct {
	Title   string   `json:"title" validate:"required"`
	Lessons []Lesson `json:"lessons" validate:"omitempty,dive"`
}

type Course struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Targets       []string         `json:"target,omitempty"`
	Instructor    Instructor       `json:"instructor"`
	Category      string           `json:"category,omitempty"`
	Level         string           `json:"level,omitempty"`
	Price         float64          `json:"price"`
	Currency      string           `json:"currency"`
	Status        string           `json:"status"`
	ThumbnailURL  string           `json:"thumbnail_url,omitempty"`
	MaxEnrollment *int             `json:"max_enrollment,omitempty"`
	Schedule      ScheduleTemplate `json:"schedule"`
	Duration      Duration         `json:"duration"`
	Content       []Section        `json:"content,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Banner is marketing content pointing at a Course. The course reference
// may dangle after a course deletion; readers must tolerate that.
type Banner struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ButtonText  string    `json:"button_text,omitempty"`
	TextColor   string    `json:"text_color,omitempty"`
	ButtonColor string    `json:"button_color,omitempty"`
	Gradient    string    `json:"gradient,omitempty"`
	Number      int       `json:"number,omitempty"`
	ImageURL    string    `json:"background_image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title         string           `json:"title" validate:"required"`
	Description   string           `json:"description"`
	Targets       []string         `json:"target"`
	InstructorID  string           `json:"instructor_id" validate:"required"`
	Category      string           `json:"category"`
	Level         string           `json:"level"`
	Price         float64          `json:"price" validate:"gte=0"`
	Currency      string           `json:"currency"`
	Status        string           `json:"status" validate:"omitempty,coursestatus"`
	ThumbnailURL  string           `json:"thumbnail_url"`
	MaxEnrollment *int             `json:"max_enrollment" validate:"omitempty,gte=0"`
	Schedule      ScheduleTemplate `json:"schedule"`
	Duration      Duration         `json:"duration"`
	Content       []Section        `json:"content" validate:"omitempty,dive"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	if nc.Currency == "" {
		nc.Currency = "VND"
	}
	if nc.Status == "" {
		nc.Status = StatusDraft
	}
	return core.Validate.Struct(nc)
}

// UpdateCourse defines a partial Course update; nil fields are left untouched.
type UpdateCourse struct {
	Title         *string           `json:"title"`
	Description   *string           `json:"description"`
	Targets       []string          `json:"target"`
	InstructorID  *string           `json:"instructor_id"`
	Category      *string           `json:"category"`
	Level         *string           `json:"level"`
	Price         *float64          `json:"price" validate:"omitempty,gte=0"`
	Currency      *string           `json:"currency"`
	Status        *string           `json:"status" validate:"omitempty,coursestatus"`
	ThumbnailURL  *string           `json:"thumbnail_url"`
	MaxEnrollment *int              `json:"max_enrollment" validate:"omitempty,gte=0"`
	Schedule      *ScheduleTemplate `json:"schedule"`
	Duration      *Duration         `json:"duration"`
	Content       []Section         `json:"content" validate:"omitempty,dive"`
}

func (uc *UpdateCourse) Validate() error {
	return core.Validate.Struct(uc)
}

type NewBanner struct {
	CourseID    string `json:"course_id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	ButtonText  string `json:"button_text"`
	TextColor   string `json:"text_color"`
	ButtonColor string `json:"button_color"`
	Gradient    string `json:"gradient"`
	Number      int    `json:"number" validate:"omitempty,gte=0"`
	ImageURL    string `json:"background_image_url"`
}

func (nb *NewBanner) Validate() error {
	nb.Title = core.CleanString(nb.Title)
	return core.Validate.Struct(nb)
}

type UpdateBanner struct {
	CourseID    *string `json:"course_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ButtonText  *string `json:"button_text"`
	TextColor   *string `json:"text_color"`
	ButtonColor *string `json:"button_color"`
	Gradient    *string `json:"gradient"`
	Number      *int    `json:"number" validate:"omitempty,gte=0"`
	ImageURL    *string `json:"background_image_url"`
}

func (ub *UpdateBanner) Validate() error {
	return core.Validate.Struct(ub)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Level    string `query:"level"`
	Status   string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Category == "" && qf.Level == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
