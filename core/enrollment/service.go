package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("enrollment")
	ErrCourseFull      = core.NewConflictError("course is at max enrollment capacity")
	ErrAlreadyEnrolled = core.NewConflictError("student already has an active enrollment in this course")
	ErrClassMismatch   = core.NewConflictError("class does not belong to the course")
)

type (
	Repository interface {
		// CreateEnrollment inserts the relation after checking, atomically
		// with the insert: course capacity (ErrCourseFull), the single
		// active enrollment per (student, course) rule (ErrAlreadyEnrolled)
		// and, when a class is set, that the class belongs to the course.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// CloseEnrollment closes the student's active enrollment under the
		// course. Closing an absent enrollment is a no-op, not an error.
		CloseEnrollment(ctx context.Context, courseID, studentID string) error
		// TransferEnrollment atomically closes the active enrollment under
		// fromCourseID and opens a new unpaid one under toCourseID. On any
		// failure (capacity, missing source) nothing is changed.
		TransferEnrollment(ctx context.Context, studentID, fromCourseID, toCourseID string) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		// FilterEnrollments applies AND operation on available QueryFilter fields.
		FilterEnrollments(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
	}

	Service struct {
		repo    Repository
		courses *catalog.Service
		users   *user.Service
	}

	// Options tweaks a new enrollment.
	Options struct {
		PaymentStatus string
		Discount      bool
	}
)

func NewService(repo Repository, courses *catalog.Service, users *user.Service) *Service {
	return &Service{repo: repo, courses: courses, users: users}
}

// Enroll opens an enrollment for the student under the course, optionally
// through a class. Capacity and uniqueness are enforced atomically with
// the write; class membership and course membership are one record, so
// they can never diverge.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID, classID string, opts ...Options) (Enrollment, error) {
	usr, err := svc.users.GetByID(ctx, studentID)
	if err != nil {
		return Enrollment{}, err
	}
	if !usr.IsStudent() {
		return Enrollment{}, core.NewValidationError(errors.New("user is not a student"))
	}
	if _, err := svc.courses.GetByID(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	enr := Enrollment{
		ID:            uuid.New().String(),
		StudentID:     studentID,
		CourseID:      courseID,
		ClassID:       classID,
		EnrolledAt:    time.Now().UTC(),
		PaymentStatus: PaymentUnpaid,
		Status:        StatusActive,
	}
	if len(opts) > 0 {
		if opts[0].PaymentStatus != "" {
			enr.PaymentStatus = opts[0].PaymentStatus
		}
		enr.Discount = opts[0].Discount
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

// Remove closes the student's active enrollment under the course. Removal
// is idempotent: removing an absent student succeeds and changes nothing,
// which keeps repeated-click removal flows safe.
func (svc *Service) Remove(ctx context.Context, courseID, studentID string) error {
	return svc.repo.CloseEnrollment(ctx, courseID, studentID)
}

// RemoveFromClass closes the student's active enrollment under the course
// only when that enrollment is bound to the class. An enrollment made on
// the course directly, or through another class, is left untouched.
// Like Remove, removing an absent student is a no-op.
func (svc *Service) RemoveFromClass(ctx context.Context, classID, courseID, studentID string) error {
	enrs, err := svc.repo.FilterEnrollments(ctx, QueryFilter{
		StudentID: studentID, CourseID: courseID, ClassID: classID, Status: StatusActive,
	})
	if err != nil {
		return err
	}
	if len(enrs) == 0 {
		return nil // not enrolled through this class
	}

	enr := enrs[0]
	now := time.Now().UTC()
	enr.Status = StatusClosed
	enr.ClosedAt = &now
	_, err = svc.repo.UpdateEnrollment(ctx, enr)
	return err
}

// Transfer moves the student's active enrollment from one course to
// another as an atomic swap. The new enrollment starts unpaid. When the
// target course is at capacity the student stays enrolled in the source
// course; the student is never left in zero or two courses.
func (svc *Service) Transfer(ctx context.Context, studentID, fromCourseID, toCourseID string) (Enrollment, error) {
	if fromCourseID == toCourseID {
		return Enrollment{}, core.NewValidationError(errors.New("cannot transfer a student to the same course"))
	}
	if _, err := svc.courses.GetByID(ctx, toCourseID); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.TransferEnrollment(ctx, studentID, fromCourseID, toCourseID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

// SetPaymentStatus updates the payment state of an enrollment. The ledger
// accepts both directions; any monotonicity policy belongs to the caller.
func (svc *Service) SetPaymentStatus(ctx context.Context, id, status string) (Enrollment, error) {
	if status != PaymentUnpaid && status != PaymentPaid {
		return Enrollment{}, core.NewValidationError(nil, core.FieldError{Field: "payment_status", Error: "invalid payment status"})
	}
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	enr.PaymentStatus = status
	return svc.repo.UpdateEnrollment(ctx, enr)
}

// SetDiscount flags or unflags an enrollment for the flat discount.
func (svc *Service) SetDiscount(ctx context.Context, id string, discount bool) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	enr.Discount = discount
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, filter)
}

// ForStudent returns the student's active enrollments.
func (svc *Service) ForStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, QueryFilter{StudentID: studentID, Status: StatusActive})
}

// ForCourse returns the course's active enrollments (its enrolled-users view).
func (svc *Service) ForCourse(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, QueryFilter{CourseID: courseID, Status: StatusActive})
}

// ForClass returns the class's active enrollments (its roster view).
func (svc *Service) ForClass(ctx context.Context, classID string) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, QueryFilter{ClassID: classID, Status: StatusActive})
}

// ComputeOutstanding sums the (discounted) course price over all active
// unpaid enrollments.
func (svc *Service) ComputeOutstanding(ctx context.Context) (float64, error) {
	unpaid, err := svc.repo.FilterEnrollments(ctx, QueryFilter{PaymentStatus: PaymentUnpaid, Status: StatusActive})
	if err != nil {
		return 0, err
	}

	var total float64
	prices := make(map[string]float64)
	for _, enr := range unpaid {
		price, ok := prices[enr.CourseID]
		if !ok {
			course, err := svc.courses.GetByID(ctx, enr.CourseID)
			if err != nil {
				if errors.Is(err, catalog.ErrCourseNotFound) {
					continue // course deleted since; nothing owed
				}
				return 0, err
			}
			price = course.Price
			prices[enr.CourseID] = price
		}
		total += enr.Price(price)
	}
	return total, nil
}
