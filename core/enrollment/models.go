package enrollment

import "time"

// Payment statuses
const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// Enrollment lifecycle statuses
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// DiscountRate is the flat multiplier applied to discounted enrollments.
const DiscountRate = 0.9

// Enrollment is the single authoritative relation binding a Student to a
// Course, optionally through a Class. Class rosters and course enrollment
// sets are filtered views over this relation; neither holds its own copy.
type Enrollment struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"student_id"`
	CourseID      string     `json:"course_id"`
	ClassID       string     `json:"class_id,omitempty"`
	EnrolledAt    time.Time  `json:"enrolled_date"` // UTC
	PaymentStatus string     `json:"payment_status"`
	Discount      bool       `json:"is_discount"`
	Status        string     `json:"status"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

func (e *Enrollment) IsActive() bool {
	return e.Status == StatusActive
}

// Price applies the enrollment's discount to a course price.
func (e *Enrollment) Price(coursePrice float64) float64 {
	if e.Discount {
		return coursePrice * DiscountRate
	}
	return coursePrice
}

type QueryFilter struct {
	StudentID     string `query:"student_id"`
	CourseID      string `query:"course_id"`
	ClassID       string `query:"class_id"`
	PaymentStatus string `query:"payment_status"`
	Status        string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.CourseID == "" && qf.ClassID == "" &&
		qf.PaymentStatus == "" && qf.Status == ""
}
