package inmem

import (
	"sync"

	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/lead"
	"github.com/hoangvu/educenter/core/schedule"
	"github.com/hoangvu/educenter/core/user"
)

// DB is the in-memory store used for development and tests. All tables
// share one lock so multi-entity mutations (enroll, transfer, class
// deletion checks) are atomic: a caller can never observe a partially
// applied write.
type DB struct {
	sync.RWMutex
	users       map[string]*user.User
	courses     map[string]*catalog.Course
	banners     map[string]*catalog.Banner
	classes     map[string]*schedule.Class
	enrollments map[string]*enrollment.Enrollment
	leads       map[string]*lead.Lead
}

func Open() (*DB, error) {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*catalog.Course),
		banners:     make(map[string]*catalog.Banner),
		classes:     make(map[string]*schedule.Class),
		enrollments: make(map[string]*enrollment.Enrollment),
		leads:       make(map[string]*lead.Lead),
	}, nil
}
