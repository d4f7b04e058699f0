package inmem

import (
	"context"
	"strings"

	"github.com/hoangvu/educenter/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) query() []schedule.Class {
	classes := make([]schedule.Class, 0, len(repo.db.classes))
	for _, cls := range repo.db.classes {
		classes = append(classes, *cls)
	}
	return classes
}

// hasRoster reports whether the class has active enrollments.
// Callers must hold the lock.
func (repo *scheduleRepository) hasRoster(classID string) bool {
	for _, enr := range repo.db.enrollments {
		if enr.ClassID == classID && enr.IsActive() {
			return true
		}
	}
	return false
}

func (repo *scheduleRepository) CreateClass(_ context.Context, cls schedule.Class) (schedule.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *scheduleRepository) GetClassByID(_ context.Context, id string) (schedule.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return schedule.Class{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) QueryAllClasses(_ context.Context) ([]schedule.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *scheduleRepository) FilterClasses(_ context.Context, filter schedule.QueryFilter) ([]schedule.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := repo.query()

	if filter.Search != "" {
		var filtered []schedule.Class
		search := strings.ToLower(filter.Search)
		for _, cls := range classes {
			if strings.Contains(strings.ToLower(cls.Name), search) {
				filtered = append(filtered, cls)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.CourseID != "" {
		var filtered []schedule.Class
		for _, cls := range classes {
			if cls.CourseID == filter.CourseID {
				filtered = append(filtered, cls)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.Room != "" {
		var filtered []schedule.Class
		for _, cls := range classes {
			if strings.EqualFold(cls.Room, filter.Room) {
				filtered = append(filtered, cls)
			}
		}
		classes = filtered
	}

	return classes, nil
}

func (repo *scheduleRepository) UpdateClass(_ context.Context, cls schedule.Class) (schedule.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origCls, ok := repo.db.classes[cls.ID]
	if !ok {
		return schedule.Class{}, schedule.ErrNotFound
	}
	// re-binding a class with enrolled students would orphan its roster
	if cls.CourseID != origCls.CourseID && repo.hasRoster(cls.ID) {
		return schedule.Class{}, schedule.ErrClassNotEmpty
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *scheduleRepository) DeleteClass(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[id]; !ok {
		return schedule.ErrNotFound
	}
	if repo.hasRoster(id) {
		return schedule.ErrClassNotEmpty
	}
	delete(repo.db.classes, id)
	return nil
}
