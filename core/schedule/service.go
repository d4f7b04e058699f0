package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("class")
	// ErrClassNotEmpty blocks deleting a class, or re-binding it to another
	// course, while students are still enrolled. There is no force override.
	ErrClassNotEmpty = core.NewConflictError("class has enrolled students")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)
		// FilterClasses applies AND operation on available QueryFilter fields.
		FilterClasses(ctx context.Context, filter QueryFilter) ([]Class, error)
		// UpdateClass persists cls; changing the course of a class with a
		// non-empty roster fails with ErrClassNotEmpty, checked atomically
		// with the write.
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass fails with ErrClassNotEmpty while the roster is
		// non-empty, regardless of any caller-side force flag.
		DeleteClass(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		courses *catalog.Service
		ledger  *enrollment.Service
		users   *user.Service
	}
)

func NewService(repo Repository, courses *catalog.Service, ledger *enrollment.Service, users *user.Service) *Service {
	return &Service{repo: repo, courses: courses, ledger: ledger, users: users}
}

// Create binds a new Class to an existing Course. The schedule defaults
// to the course's template and may diverge later.
func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	course, err := svc.courses.GetByID(ctx, nc.CourseID)
	if err != nil {
		return Class{}, err
	}

	now := time.Now().UTC()
	cls := Class{
		ID:        uuid.New().String(),
		Name:      nc.Name,
		Room:      nc.Room,
		CourseID:  course.ID,
		Schedule:  course.Schedule,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nc.Schedule != nil {
		cls.Schedule = *nc.Schedule
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Class, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.repo.QueryAllClasses(ctx)
	}
	return svc.repo.FilterClasses(ctx, filter)
}

// Update applies a partial update. Re-binding the class to another course
// is blocked while students are enrolled: enrollments are per course, so
// silently re-parenting the roster would bypass the target's capacity.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, err
	}

	if uc.Name != nil {
		cls.Name = core.CleanString(*uc.Name)
	}
	if uc.Room != nil {
		cls.Room = core.CleanString(*uc.Room)
	}
	if uc.CourseID != nil && *uc.CourseID != cls.CourseID {
		if _, err := svc.courses.GetByID(ctx, *uc.CourseID); err != nil {
			return Class{}, err
		}
		cls.CourseID = *uc.CourseID
	}
	if uc.Schedule != nil {
		cls.Schedule = *uc.Schedule
	}

	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

// EnrollStudent enrolls the student in the class and, by the same single
// write, in the class's course: the ledger holds one relation covering
// both memberships, so neither can exist without the other.
func (svc *Service) EnrollStudent(ctx context.Context, classID, studentID string, opts ...enrollment.Options) (enrollment.Enrollment, error) {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	return svc.ledger.Enroll(ctx, studentID, cls.CourseID, cls.ID, opts...)
}

// RemoveStudent removes the student from the class and, through the same
// ledger record, from its course. Only an enrollment bound to this class is
// closed: one made on the course directly, or through another class, is left
// untouched. Removing an absent student is a no-op.
func (svc *Service) RemoveStudent(ctx context.Context, classID, studentID string) error {
	cls, err := svc.repo.GetClassByID(ctx, classID)
	if err != nil {
		return err
	}
	return svc.ledger.RemoveFromClass(ctx, cls.ID, cls.CourseID, studentID)
}

// Roster returns the class roster as a read model joined with student info.
func (svc *Service) Roster(ctx context.Context, classID string) ([]RosterEntry, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}
	enrs, err := svc.ledger.ForClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	roster := make([]RosterEntry, 0, len(enrs))
	for _, enr := range enrs {
		entry := RosterEntry{
			EnrollmentID:  enr.ID,
			StudentID:     enr.StudentID,
			EnrolledAt:    enr.EnrolledAt,
			PaymentStatus: enr.PaymentStatus,
		}
		if usr, err := svc.users.GetByID(ctx, enr.StudentID); err == nil {
			entry.StudentName = usr.FullName()
			entry.StudentEmail = usr.Email
		}
		roster = append(roster, entry)
	}
	return roster, nil
}
