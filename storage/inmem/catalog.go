package inmem

import (
	"context"
	"strings"

	"github.com/hoangvu/educenter/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) queryCourses() []catalog.Course {
	courses := make([]catalog.Course, 0, len(repo.db.courses))
	for _, course := range repo.db.courses {
		courses = append(courses, *course)
	}
	return courses
}

func (repo *catalogRepository) CreateCourse(_ context.Context, course catalog.Course) (catalog.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *catalogRepository) GetCourseByID(_ context.Context, id string) (catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if course, ok := repo.db.courses[id]; ok {
		return *course, nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) QueryAllCourses(_ context.Context) ([]catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryCourses(), nil
}

func (repo *catalogRepository) FilterCourses(_ context.Context, filter catalog.QueryFilter) ([]catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.queryCourses()

	if filter.Search != "" {
		var filtered []catalog.Course
		search := strings.ToLower(filter.Search)
		for _, course := range courses {
			if strings.Contains(strings.ToLower(course.Title), search) ||
				strings.Contains(strings.ToLower(course.Description), search) {
				filtered = append(filtered, course)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Category != "" {
		var filtered []catalog.Course
		for _, course := range courses {
			if strings.EqualFold(course.Category, filter.Category) {
				filtered = append(filtered, course)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Level != "" {
		var filtered []catalog.Course
		for _, course := range courses {
			if strings.EqualFold(course.Level, filter.Level) {
				filtered = append(filtered, course)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Status != "" {
		var filtered []catalog.Course
		for _, course := range courses {
			if course.Status == filter.Status {
				filtered = append(filtered, course)
			}
		}
		courses = filtered
	}

	return courses, nil
}

func (repo *catalogRepository) UpdateCourse(_ context.Context, course catalog.Course) (catalog.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[course.ID]; !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *catalogRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return catalog.ErrCourseNotFound
	}
	// classes and enrollment records keep a hard reference; banners are
	// left dangling
	for _, cls := range repo.db.classes {
		if cls.CourseID == id {
			return catalog.ErrCourseInUse
		}
	}
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == id {
			return catalog.ErrCourseHasEnrollments
		}
	}
	delete(repo.db.courses, id)
	return nil
}

func (repo *catalogRepository) CreateBanner(_ context.Context, banner catalog.Banner) (catalog.Banner, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.banners[banner.ID] = &banner
	return banner, nil
}

func (repo *catalogRepository) GetBannerByID(_ context.Context, id string) (catalog.Banner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if banner, ok := repo.db.banners[id]; ok {
		return *banner, nil
	}
	return catalog.Banner{}, catalog.ErrBannerNotFound
}

func (repo *catalogRepository) QueryAllBanners(_ context.Context) ([]catalog.Banner, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	banners := make([]catalog.Banner, 0, len(repo.db.banners))
	for _, banner := range repo.db.banners {
		banners = append(banners, *banner)
	}
	return banners, nil
}

func (repo *catalogRepository) UpdateBanner(_ context.Context, banner catalog.Banner) (catalog.Banner, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.banners[banner.ID]; !ok {
		return catalog.Banner{}, catalog.ErrBannerNotFound
	}
	repo.db.banners[banner.ID] = &banner
	return banner, nil
}

func (repo *catalogRepository) DeleteBanner(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.banners[id]; !ok {
		return catalog.ErrBannerNotFound
	}
	delete(repo.db.banners, id)
	return nil
}
