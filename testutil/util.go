package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/lead"
	"github.com/hoangvu/educenter/core/schedule"
	"github.com/hoangvu/educenter/core/user"
)

// NewConfig returns an app configuration suitable for tests.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = true
	conf.TestMode = true
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	first, last, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	addr := user.Address{Ward: "Ward 1", City: "HCMC", Country: "VN"}
	switch {
	case usr.IsParent():
		usr.Parent = &user.ParentProfile{Address: addr}
	case usr.IsStudent():
		usr.Student = &user.StudentProfile{IsAdult: true, Address: &addr}
	case usr.IsEmployee():
		usr.Employee = &user.EmployeeProfile{Address: addr}
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateParent registers a parent reachable at the given phone number.
func CreateParent(t *testing.T, repo user.Repository, name, email, phone string) user.User {
	t.Helper()

	usr := CreateUser(t, repo, name, "Parent", email, "", user.RoleParent, true)
	usr.Phone = phone
	usr, err := repo.UpdateUser(context.Background(), usr, nil)
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo catalog.Repository,
	title string,
	instructor user.User,
	price float64,
	maxEnrollment *int,
) catalog.Course {
	t.Helper()

	now := time.Now().UTC()
	course := catalog.Course{
		ID:            uuid.New().String(),
		Title:         title,
		Instructor:    catalog.Instructor{ID: instructor.ID, Name: instructor.FullName()},
		Price:         price,
		Currency:      "VND",
		Status:        catalog.StatusActive,
		MaxEnrollment: maxEnrollment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	course, err := repo.CreateCourse(context.Background(), course)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

func CreateClass(t *testing.T, repo schedule.Repository, name, room, courseID string) schedule.Class {
	t.Helper()

	now := time.Now().UTC()
	cls := schedule.Class{
		ID:        uuid.New().String(),
		Name:      name,
		Room:      room,
		CourseID:  courseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cls, err := repo.CreateClass(context.Background(), cls)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func CreateLead(
	t *testing.T,
	repo lead.Repository,
	parentName, parentPhone, studentName string,
	courseTitles []string,
	status string,
) lead.Lead {
	t.Helper()

	ld := lead.Lead{
		ID:            uuid.New().String(),
		ParentName:    parentName,
		ParentPhone:   parentPhone,
		StudentName:   studentName,
		CourseTitles:  courseTitles,
		Status:        status,
		PaymentStatus: "unpaid",
		CreatedAt:     time.Now().UTC(),
	}
	ld, err := repo.CreateLead(context.Background(), ld)
	if err != nil {
		t.Fatalf("CreateLead() failed: %v", err)
	}
	return ld
}

func IntPtr(i int) *int           { return &i }
func FloatPtr(f float64) *float64 { return &f }
func BoolPtr(b bool) *bool        { return &b }
func StrPtr(s string) *string     { return &s }
