package lead

import (
	"time"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/user"
)

// Lead statuses
const (
	StatusPending   = "pending"
	StatusContacted = "contacted"
	StatusRejected  = "rejected"
	StatusConverted = "converted"
)

// Lead is a prospect registration record, pre-dating any User/Enrollment.
// Leads are created by the landing page and only ever move forward:
// Pending -> Contacted -> Converted, or -> Rejected.
type Lead struct {
	ID            string    `json:"id"`
	ParentName    string    `json:"parent_name"`
	ParentEmail   string    `json:"parent_email,omitempty"`
	ParentPhone   string    `json:"parent_phone_number"`
	StudentName   string    `json:"student_name"`
	CourseTitles  []string  `json:"course_titles"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	IsDiscount    bool      `json:"is_discount"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// NewLead contains information needed to record a new Lead.
type NewLead struct {
	ParentName   string   `json:"parent_name" validate:"required"`
	ParentEmail  string   `json:"parent_email" validate:"omitempty,email"`
	ParentPhone  string   `json:"parent_phone_number" validate:"required,phone10"`
	StudentName  string   `json:"student_name" validate:"required"`
	CourseTitles []string `json:"course_titles" validate:"required,min=1"`
	IsDiscount   bool     `json:"is_discount"`
}

func (nl *NewLead) Validate() error {
	nl.ParentName = core.CleanString(nl.ParentName)
	nl.ParentEmail = core.CleanString(nl.ParentEmail, true /* lower */)
	nl.ParentPhone = core.CleanString(nl.ParentPhone)
	nl.StudentName = core.CleanString(nl.StudentName)
	return core.Validate.Struct(nl)
}

// ConvertLead carries the account details needed to turn a contacted lead
// into real users. Parent credentials are only needed when no parent with
// the lead's phone number exists yet.
type ConvertLead struct {
	StudentEmail    string `json:"student_email" validate:"required,email"`
	StudentPassword string `json:"student_password" validate:"required"`

	ParentEmail    string        `json:"parent_email" validate:"omitempty,email"`
	ParentPassword string        `json:"parent_password"`
	ParentAddress  *user.Address `json:"parent_address"`
}

func (cl *ConvertLead) Validate() error {
	cl.StudentEmail = core.CleanString(cl.StudentEmail, true /* lower */)
	cl.ParentEmail = core.CleanString(cl.ParentEmail, true /* lower */)
	return core.Validate.Struct(cl)
}

type QueryFilter struct {
	Search        string `query:"search"`
	Status        string `query:"status"`
	PaymentStatus string `query:"payment_status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.PaymentStatus == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
