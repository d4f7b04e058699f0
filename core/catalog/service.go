package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/user"
)

var (
	// errors
	ErrCourseNotFound       = core.NewNotFoundError("course")
	ErrBannerNotFound       = core.NewNotFoundError("banner")
	ErrCourseInUse          = core.NewConflictError("course is referenced by one or more classes")
	ErrCourseHasEnrollments = core.NewConflictError("course has enrollment records")

	errNotATeacher = "instructor must be a teaching employee"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		// FilterCourses applies AND operation on available QueryFilter fields.
		FilterCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		UpdateCourse(ctx context.Context, course Course) (Course, error)
		// DeleteCourse fails with ErrCourseInUse while any class references
		// the course, and with ErrCourseHasEnrollments while any enrollment
		// record does, closed ones included. Banners pointing at the course
		// are left dangling.
		DeleteCourse(ctx context.Context, id string) error

		CreateBanner(ctx context.Context, banner Banner) (Banner, error)
		GetBannerByID(ctx context.Context, id string) (Banner, error)
		QueryAllBanners(ctx context.Context) ([]Banner, error)
		UpdateBanner(ctx context.Context, banner Banner) (Banner, error)
		DeleteBanner(ctx context.Context, id string) error
	}

	Service struct {
		repo   Repository
		users  *user.Service
		logger core.Logger
	}
)

func NewService(repo Repository, users *user.Service, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, logger: logger}
}

// Create validates and persists a new Course. The instructor must resolve
// to an existing teaching employee.
func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	instructor, err := svc.users.GetByID(ctx, nc.InstructorID)
	if err != nil {
		return Course{}, err
	}
	if !instructor.IsTeacher() {
		return Course{}, core.NewValidationError(nil, core.FieldError{Field: "instructor_id", Error: errNotATeacher})
	}

	now := time.Now().UTC()
	course := Course{
		ID:            uuid.New().String(),
		Title:         nc.Title,
		Description:   nc.Description,
		Targets:       nc.Targets,
		Instructor:    Instructor{ID: instructor.ID, Name: instructor.FullName()},
		Category:      nc.Category,
		Level:         nc.Level,
		Price:         nc.Price,
		Currency:      nc.Currency,
		Status:        nc.Status,
		ThumbnailURL:  nc.ThumbnailURL,
		MaxEnrollment: nc.MaxEnrollment,
		Schedule:      nc.Schedule,
		Duration:      nc.Duration,
		Content:       nc.Content,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateCourse(ctx, course)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	course, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	return svc.reconciled(ctx, course), nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryAllCourses(ctx)
	if err != nil {
		return nil, err
	}
	for i, course := range courses {
		courses[i] = svc.reconciled(ctx, course)
	}
	return courses, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.QueryAll(ctx)
	}
	courses, err := svc.repo.FilterCourses(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i, course := range courses {
		courses[i] = svc.reconciled(ctx, course)
	}
	return courses, nil
}

// Update applies a partial update. When the patch does not set a status
// itself, the stored status is reconciled against the start date.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	course, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != nil {
		course.Title = core.CleanString(*uc.Title)
	}
	if uc.Description != nil {
		course.Description = *uc.Description
	}
	if uc.Targets != nil {
		course.Targets = uc.Targets
	}
	if uc.InstructorID != nil {
		instructor, err := svc.users.GetByID(ctx, *uc.InstructorID)
		if err != nil {
			return Course{}, err
		}
		if !instructor.IsTeacher() {
			return Course{}, core.NewValidationError(nil, core.FieldError{Field: "instructor_id", Error: errNotATeacher})
		}
		course.Instructor = Instructor{ID: instructor.ID, Name: instructor.FullName()}
	}
	if uc.Category != nil {
		course.Category = *uc.Category
	}
	if uc.Level != nil {
		course.Level = *uc.Level
	}
	if uc.Price != nil {
		course.Price = *uc.Price
	}
	if uc.Currency != nil {
		course.Currency = *uc.Currency
	}
	if uc.ThumbnailURL != nil {
		course.ThumbnailURL = *uc.ThumbnailURL
	}
	if uc.MaxEnrollment != nil {
		course.MaxEnrollment = uc.MaxEnrollment
	}
	if uc.Schedule != nil {
		course.Schedule = *uc.Schedule
	}
	if uc.Duration != nil {
		course.Duration = *uc.Duration
	}
	if uc.Content != nil {
		course.Content = uc.Content
	}

	if uc.Status != nil {
		course.Status = *uc.Status
	} else {
		reconcileStatus(&course)
	}

	course.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, course)
}

// Delete removes a course. It fails with ErrCourseInUse while any class
// references the course; banners are left dangling on purpose and handled
// defensively at read time.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

// reconcileStatus flips an Inactive course to Active once its start date
// has been reached. Idempotent.
func reconcileStatus(course *Course) bool {
	if course.Status != StatusInactive {
		return false
	}
	start := course.Duration.StartDate
	if start == nil || start.After(time.Now()) {
		return false
	}
	course.Status = StatusActive
	return true
}

// reconciled applies the status reconciliation rule lazily on read and
// persists the flip. A persistence failure only logs: the caller still
// sees the reconciled course and a later pass will retry.
func (svc *Service) reconciled(ctx context.Context, course Course) Course {
	if reconcileStatus(&course) {
		updated, err := svc.repo.UpdateCourse(ctx, course)
		if err != nil {
			if svc.logger != nil {
				svc.logger.Warn(fmt.Sprintf("persisting status reconciliation for course %s: %v", course.ID, err))
			}
			return course
		}
		return updated
	}
	return course
}

// ReconcileAll runs the status reconciliation sweep over the whole catalog.
func (svc *Service) ReconcileAll(ctx context.Context) error {
	courses, err := svc.repo.QueryAllCourses(ctx)
	if err != nil {
		return err
	}
	for _, course := range courses {
		if reconcileStatus(&course) {
			if _, err := svc.repo.UpdateCourse(ctx, course); err != nil {
				return err
			}
		}
	}
	return nil
}

// StartReconciler runs the reconciliation sweep on a timer until ctx is done.
func (svc *Service) StartReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.ReconcileAll(ctx); err != nil && svc.logger != nil {
				svc.logger.Error(fmt.Sprintf("catalog reconciliation sweep: %v", err), err)
			}
		}
	}
}

// Banners

func (svc *Service) CreateBanner(ctx context.Context, nb NewBanner) (Banner, error) {
	if _, err := svc.repo.GetCourseByID(ctx, nb.CourseID); err != nil {
		return Banner{}, err
	}
	banner := Banner{
		ID:          uuid.New().String(),
		CourseID:    nb.CourseID,
		Title:       nb.Title,
		Description: nb.Description,
		ButtonText:  nb.ButtonText,
		TextColor:   nb.TextColor,
		ButtonColor: nb.ButtonColor,
		Gradient:    nb.Gradient,
		Number:      nb.Number,
		ImageURL:    nb.ImageURL,
		CreatedAt:   time.Now().UTC(),
	}
	return svc.repo.CreateBanner(ctx, banner)
}

func (svc *Service) GetBannerByID(ctx context.Context, id string) (Banner, error) {
	return svc.repo.GetBannerByID(ctx, id)
}

func (svc *Service) QueryAllBanners(ctx context.Context) ([]Banner, error) {
	return svc.repo.QueryAllBanners(ctx)
}

// BannerCourse resolves a banner's course reference; a dangling reference
// yields no course rather than an error.
func (svc *Service) BannerCourse(ctx context.Context, banner Banner) (*Course, error) {
	course, err := svc.repo.GetCourseByID(ctx, banner.CourseID)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &course, nil
}

func (svc *Service) UpdateBanner(ctx context.Context, id string, ub UpdateBanner) (Banner, error) {
	banner, err := svc.repo.GetBannerByID(ctx, id)
	if err != nil {
		return Banner{}, err
	}
	if ub.CourseID != nil {
		if _, err := svc.repo.GetCourseByID(ctx, *ub.CourseID); err != nil {
			return Banner{}, err
		}
		banner.CourseID = *ub.CourseID
	}
	if ub.Title != nil {
		banner.Title = core.CleanString(*ub.Title)
	}
	if ub.Description != nil {
		banner.Description = *ub.Description
	}
	if ub.ButtonText != nil {
		banner.ButtonText = *ub.ButtonText
	}
	if ub.TextColor != nil {
		banner.TextColor = *ub.TextColor
	}
	if ub.ButtonColor != nil {
		banner.ButtonColor = *ub.ButtonColor
	}
	if ub.Gradient != nil {
		banner.Gradient = *ub.Gradient
	}
	if ub.Number != nil {
		banner.Number = *ub.Number
	}
	if ub.ImageURL != nil {
		banner.ImageURL = *ub.ImageURL
	}
	return svc.repo.UpdateBanner(ctx, banner)
}

func (svc *Service) DeleteBanner(ctx context.Context, id string) error {
	return svc.repo.DeleteBanner(ctx, id)
}
