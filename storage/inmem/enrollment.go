package inmem

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/schedule"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// activeFor returns the student's active enrollment under the course, if any.
// Callers must hold the lock.
func (repo *enrollmentRepository) activeFor(courseID, studentID string) *enrollment.Enrollment {
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID && enr.StudentID == studentID && enr.IsActive() {
			return enr
		}
	}
	return nil
}

// activeCount counts active enrollments under the course.
// Callers must hold the lock.
func (repo *enrollmentRepository) activeCount(courseID string) int {
	var n int
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID && enr.IsActive() {
			n++
		}
	}
	return n
}

// checkInsert runs the capacity, uniqueness and class-binding checks for a
// prospective enrollment. Callers must hold the write lock so the checks
// stay atomic with the insert.
func (repo *enrollmentRepository) checkInsert(courseID, studentID, classID string) error {
	course, ok := repo.db.courses[courseID]
	if !ok {
		return catalog.ErrCourseNotFound
	}
	if repo.activeFor(courseID, studentID) != nil {
		return enrollment.ErrAlreadyEnrolled
	}
	if course.MaxEnrollment != nil && repo.activeCount(courseID) >= *course.MaxEnrollment {
		return enrollment.ErrCourseFull
	}
	if classID != "" {
		cls, ok := repo.db.classes[classID]
		if !ok {
			return schedule.ErrNotFound
		}
		if cls.CourseID != courseID {
			return enrollment.ErrClassMismatch
		}
	}
	return nil
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkInsert(enr.CourseID, enr.StudentID, enr.ClassID); err != nil {
		return enrollment.Enrollment{}, err
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) CloseEnrollment(_ context.Context, courseID, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr := repo.activeFor(courseID, studentID)
	if enr == nil {
		return nil // idempotent
	}
	now := time.Now().UTC()
	enr.Status = enrollment.StatusClosed
	enr.ClosedAt = &now
	return nil
}

func (repo *enrollmentRepository) TransferEnrollment(_ context.Context, studentID, fromCourseID, toCourseID string) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	src := repo.activeFor(fromCourseID, studentID)
	if src == nil {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	if err := repo.checkInsert(toCourseID, studentID, ""); err != nil {
		return enrollment.Enrollment{}, err
	}

	now := time.Now().UTC()
	src.Status = enrollment.StatusClosed
	src.ClosedAt = &now

	enr := enrollment.Enrollment{
		ID:            uuid.New().String(),
		StudentID:     studentID,
		CourseID:      toCourseID,
		EnrolledAt:    now,
		PaymentStatus: enrollment.PaymentUnpaid,
		Discount:      src.Discount,
		Status:        enrollment.StatusActive,
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) FilterEnrollments(_ context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrollments []enrollment.Enrollment
	for _, enr := range repo.db.enrollments {
		if filter.StudentID != "" && enr.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if filter.ClassID != "" && enr.ClassID != filter.ClassID {
			continue
		}
		if filter.PaymentStatus != "" && enr.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.Status != "" && enr.Status != filter.Status {
			continue
		}
		enrollments = append(enrollments, *enr)
	}
	return enrollments, nil
}
