package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrParentNotFound = core.NewNotFoundError("parent")
	ErrEmailExists    = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when another user
		// (not in excludedUsers) already holds the email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		// CreateUser persists usr; referenced parent IDs are re-checked
		// under the store's write lock so a student is never created with
		// a dangling parent link.
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// GetParentByPhone resolves a Parent user by their phone number;
		// returns ErrParentNotFound when no parent holds the phone.
		GetParentByPhone(ctx context.Context, phone string) (User, error)
		// QueryChildren returns the derived child back-references of a parent.
		QueryChildren(ctx context.Context, parentID string) ([]User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on name or email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) CheckEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create validates and persists a new User under its role variant's
// required-field set. For minor students the parent phone number is
// resolved to an existing Parent first; no user is written when the
// parent cannot be found.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		Phone:     nu.Phone,
		Role:      nu.Role,
		AvatarURL: nu.AvatarURL,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	addr := Address{}
	if nu.Address != nil {
		addr = *nu.Address
	}

	switch {
	case usr.IsParent():
		usr.Parent = &ParentProfile{Address: addr}
	case usr.IsStudent():
		prof := &StudentProfile{IsAdult: nu.IsAdultStudent}
		if nu.IsAdultStudent {
			prof.Address = nu.Address
		} else {
			parent, err := svc.repo.GetParentByPhone(ctx, core.CleanString(nu.ParentPhoneNumber))
			if err != nil {
				return User{}, err
			}
			prof.ParentIDs = []string{parent.ID}
		}
		usr.Student = prof
	case usr.IsEmployee():
		usr.Employee = &EmployeeProfile{
			Address:    addr,
			Degrees:    nu.Degrees,
			Experience: nu.Experience,
		}
	}

	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	if usr.IsEmployee() && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
			Subject:      "Welcome to " + svc.conf.AppName,
			TemplateName: "welcome-employee",
			TemplateData: struct {
				FirstName string
				Role      string
			}{usr.FirstName, usr.Role},
		})
	}
	return usr, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.repo.QueryAllUsers(ctx)
	}
	return svc.repo.FilterUsers(ctx, filter)
}

// GetParentByPhone resolves an existing Parent account by phone number.
func (svc *Service) GetParentByPhone(ctx context.Context, phone string) (User, error) {
	return svc.repo.GetParentByPhone(ctx, core.CleanString(phone))
}

// ParentExistsByPhone backs the UI's parent existence check.
func (svc *Service) ParentExistsByPhone(ctx context.Context, phone string) (bool, error) {
	_, err := svc.repo.GetParentByPhone(ctx, core.CleanString(phone))
	if err != nil {
		if err == ErrParentNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// LinkParentToStudent resolves an existing Parent by phone and links them
// to the student. The resolution and the student write happen against the
// same store so a dangling link cannot be observed.
func (svc *Service) LinkParentToStudent(ctx context.Context, studentID, parentPhone string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, studentID)
	if err != nil {
		return User{}, err
	}
	if !usr.IsStudent() || usr.Student == nil {
		return User{}, core.NewValidationError(errors.New("user is not a student"))
	}

	parent, err := svc.repo.GetParentByPhone(ctx, core.CleanString(parentPhone))
	if err != nil {
		return User{}, err
	}

	for _, id := range usr.Student.ParentIDs {
		if id == parent.ID {
			return usr, nil // already linked
		}
	}
	usr.Student.ParentIDs = append(usr.Student.ParentIDs, parent.ID)
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

// ChangeRole re-validates the user under the new variant's required-field
// set. Profile data that the new role does not use is kept dormant rather
// than deleted, so changing roles never loses data.
func (svc *Service) ChangeRole(ctx context.Context, id, newRole string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	valid := false
	for _, role := range AllRoles {
		if role == newRole {
			valid = true
			break
		}
	}
	if !valid {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: roleText})
	}
	if usr.Role == newRole {
		return usr, nil
	}

	usr.Role = newRole
	if err := validateRecordForRole(usr); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

// validateRecordForRole checks that a stored user record satisfies the
// required-field set of its (possibly just changed) role.
func validateRecordForRole(usr User) error {
	var flds []core.FieldError
	switch {
	case usr.IsParent():
		if usr.Parent == nil {
			flds = ValidateAddress(nil, true)
		} else {
			flds = ValidateAddress(&usr.Parent.Address, true)
		}
	case usr.IsStudent():
		if usr.Student == nil || (!usr.Student.IsAdult && len(usr.Student.ParentIDs) == 0) {
			flds = append(flds, core.FieldError{Field: "parent_ids", Error: parentPhoneRequiredText})
		}
		if usr.Student != nil && usr.Student.IsAdult {
			flds = append(flds, ValidateAddress(usr.Student.Address, true)...)
		}
	case usr.IsEmployee():
		if usr.Employee == nil {
			flds = append(flds, ValidateAddress(nil, true)...)
			flds = append(flds, core.FieldError{Field: "degrees", Error: degreeRequiredText})
			flds = append(flds, core.FieldError{Field: "experience", Error: experienceRequiredText})
		} else {
			flds = append(flds, ValidateAddress(&usr.Employee.Address, true)...)
			if len(usr.Employee.Degrees) == 0 {
				flds = append(flds, core.FieldError{Field: "degrees", Error: degreeRequiredText})
			}
			if len(usr.Employee.Experience) == 0 {
				flds = append(flds, core.FieldError{Field: "experience", Error: experienceRequiredText})
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("user record does not satisfy the new role"), flds...)
	}
	return nil
}

// Update applies a partial update. Role-specific profile fields replace
// the profile data for the user's current role.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if uu.FirstName != "" {
		usr.FirstName = uu.FirstName
	}
	if uu.LastName != "" {
		usr.LastName = uu.LastName
	}
	if uu.Email != "" {
		usr.Email = uu.Email
	}
	if uu.Phone != "" {
		usr.Phone = uu.Phone
	}
	if uu.AvatarURL != "" {
		usr.AvatarURL = uu.AvatarURL
	}

	if uu.Address != nil {
		switch {
		case usr.IsParent() && usr.Parent != nil:
			usr.Parent.Address = *uu.Address
		case usr.IsStudent() && usr.Student != nil:
			usr.Student.Address = uu.Address
		case usr.IsEmployee() && usr.Employee != nil:
			usr.Employee.Address = *uu.Address
		}
	}
	if usr.IsEmployee() && usr.Employee != nil {
		if uu.Degrees != nil {
			usr.Employee.Degrees = uu.Degrees
		}
		if uu.Experience != nil {
			usr.Employee.Experience = uu.Experience
		}
	}

	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	if err := validateRecordForRole(usr); err != nil {
		return User{}, err
	}

	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// Children returns the derived child back-references of a parent.
func (svc *Service) Children(ctx context.Context, parentID string) ([]User, error) {
	return svc.repo.QueryChildren(ctx, parentID)
}

// Authenticate verifies the credentials of an active user.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
