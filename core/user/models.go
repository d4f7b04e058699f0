package user

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hoangvu/educenter/core"
)

// Roles
const (
	RoleParent  = "parent:"
	RoleStudent = "student:"

	// Employees
	RoleEmployee           = "employee:"
	RoleEmployeeTeacher    = "employee:teacher"
	RoleEmployeeFinance    = "employee:finance"
	RoleEmployeeAdmin      = "employee:admin"
	RoleEmployeeConsultant = "employee:consultant"
)

const DefaultCountry = "Vietnam"

var (
	EmployeeRoles = []string{RoleEmployeeTeacher, RoleEmployeeFinance, RoleEmployeeAdmin, RoleEmployeeConsultant}
	AllRoles      = getAllRoles()

	Roles = []Role{
		{Name: "Parent", Value: RoleParent},
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleEmployeeTeacher},
		{Name: "Finance", Value: RoleEmployeeFinance},
		{Name: "Admin", Value: RoleEmployeeAdmin},
		{Name: "Consultant", Value: RoleEmployeeConsultant},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 6)
	all = append(all, RoleParent, RoleStudent)
	all = append(all, EmployeeRoles...)
	return all
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Address is a structured postal address; only Ward and City are ever required.
type Address struct {
	HouseNumber string `json:"house_number,omitempty"`
	Street      string `json:"street,omitempty"`
	Ward        string `json:"ward"`
	District    string `json:"district,omitempty"`
	City        string `json:"city"`
	Province    string `json:"province,omitempty"`
	Country     string `json:"country"`
}

func (a *Address) SetDefaults() {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
}

type Degree struct {
	Name        string `json:"name" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Year        int    `json:"year" validate:"required"`
	Major       string `json:"major,omitempty"`
}

type Experience struct {
	Position    string     `json:"position" validate:"required"`
	Company     string     `json:"company" validate:"required"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Description string     `json:"description,omitempty"`
}

type StudentProfile struct {
	IsAdult bool `json:"is_adult"`
	// ParentIDs is required and non-empty for minor students.
	ParentIDs []string `json:"parent_ids,omitempty"`
	// Address is required for adult students.
	Address *Address `json:"address,omitempty"`
}

type ParentProfile struct {
	Address Address `json:"address"`
	// ChildIDs is a derived back-reference, never authoritative.
	ChildIDs []string `json:"child_ids,omitempty"`
}

type EmployeeProfile struct {
	Address    Address      `json:"address"`
	Degrees    []Degree     `json:"degrees"`
	Experience []Experience `json:"experience"`
}

type User struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone_number,omitempty"`
	Role         string `json:"role"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	IsActive     bool   `json:"is_active"`
	PasswordHash []byte `json:"-"`

	// Exactly one of these matches Role. Profiles for previous roles are kept
	// dormant after a role change so no data is lost.
	Student  *StudentProfile  `json:"student,omitempty"`
	Parent   *ParentProfile   `json:"parent,omitempty"`
	Employee *EmployeeProfile `json:"employee,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	return strings.HasPrefix(u.Role, prefix)
}

func (u *User) IsParent() bool   { return u.RoleStartsWith(RoleParent) }
func (u *User) IsStudent() bool  { return u.RoleStartsWith(RoleStudent) }
func (u *User) IsEmployee() bool { return u.RoleStartsWith(RoleEmployee) }
func (u *User) IsTeacher() bool  { return u.Role == RoleEmployeeTeacher }
func (u *User) IsAdmin() bool    { return u.Role == RoleEmployeeAdmin }

// ActiveProfileAddress returns the address attached to the current role's profile, if any.
func (u *User) ActiveProfileAddress() *Address {
	switch {
	case u.IsParent() && u.Parent != nil:
		return &u.Parent.Address
	case u.IsStudent() && u.Student != nil:
		return u.Student.Address
	case u.IsEmployee() && u.Employee != nil:
		return &u.Employee.Address
	}
	return nil
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Phone           string `json:"phone_number" validate:"omitempty,phone10"`
	Role            string `json:"role" validate:"required,role"`
	AvatarURL       string `json:"avatar_url"`

	// student fields
	IsAdultStudent    bool   `json:"is_adult_student"`
	ParentPhoneNumber string `json:"parent_phone_number" validate:"omitempty,phone10"`

	// parent / adult-student / employee fields
	Address *Address `json:"address"`

	// employee fields
	Degrees    []Degree     `json:"degrees" validate:"omitempty,dive"`
	Experience []Experience `json:"experience" validate:"omitempty,dive"`
}

func (nu *NewUser) Validate(ctx context.Context, svc *Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Address != nil {
		nu.Address.SetDefaults()
	}

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Zero-valued fields are left untouched.
type UpdateUser struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone_number" validate:"omitempty,phone10"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	AvatarURL       string `json:"avatar_url"`

	Address    *Address     `json:"address"`
	Degrees    []Degree     `json:"degrees" validate:"omitempty,dive"`
	Experience []Experience `json:"experience" validate:"omitempty,dive"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, svc *Service) error {
	uu.FirstName = core.CleanString(uu.FirstName)
	if uu.FirstName == "" {
		uu.FirstName = origUsr.FirstName
	}
	uu.LastName = core.CleanString(uu.LastName)
	if uu.LastName == "" {
		uu.LastName = origUsr.LastName
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if uu.Address != nil {
		uu.Address.SetDefaults()
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, uu.Email, origUsr)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
