package lead

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("lead")
)

type (
	Repository interface {
		CreateLead(ctx context.Context, ld Lead) (Lead, error)
		GetLeadByID(ctx context.Context, id string) (Lead, error)
		QueryAllLeads(ctx context.Context) ([]Lead, error)
		// FilterLeads applies AND operation on available QueryFilter fields.
		FilterLeads(ctx context.Context, filter QueryFilter) ([]Lead, error)
		UpdateLead(ctx context.Context, ld Lead) (Lead, error)
	}

	Service struct {
		repo    Repository
		users   *user.Service
		courses *catalog.Service
		ledger  *enrollment.Service
		mailSvc core.EmailService
	}

	// ConversionResult reports what a successful conversion produced.
	ConversionResult struct {
		Lead        Lead                    `json:"lead"`
		Parent      user.User               `json:"parent"`
		Student     user.User               `json:"student"`
		Enrollments []enrollment.Enrollment `json:"enrollments"`
	}
)

func NewService(repo Repository, users *user.Service, courses *catalog.Service, ledger *enrollment.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, users: users, courses: courses, ledger: ledger, mailSvc: mailSvc}
}

// Record appends a new pending lead. Leads are append-only; nothing about
// an existing lead is ever rewritten by this path.
func (svc *Service) Record(ctx context.Context, nl NewLead) (Lead, error) {
	ld := Lead{
		ID:            uuid.New().String(),
		ParentName:    nl.ParentName,
		ParentEmail:   nl.ParentEmail,
		ParentPhone:   nl.ParentPhone,
		StudentName:   nl.StudentName,
		CourseTitles:  nl.CourseTitles,
		Status:        StatusPending,
		PaymentStatus: enrollment.PaymentUnpaid,
		IsDiscount:    nl.IsDiscount,
		CreatedAt:     time.Now().UTC(),
	}
	return svc.repo.CreateLead(ctx, ld)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lead, error) {
	return svc.repo.GetLeadByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Lead, error) {
	return svc.repo.QueryAllLeads(ctx)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Lead, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.repo.QueryAllLeads(ctx)
	}
	return svc.repo.FilterLeads(ctx, filter)
}

// MarkContacted transitions a lead from Pending to Contacted; any other
// transition fails with a StateError. The prospect is notified by email
// when the lead carries one.
func (svc *Service) MarkContacted(ctx context.Context, id string) (Lead, error) {
	ld, err := svc.repo.GetLeadByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if ld.Status != StatusPending {
		return Lead{}, core.NewStateError("lead", ld.Status, StatusContacted)
	}

	ld.Status = StatusContacted
	ld, err = svc.repo.UpdateLead(ctx, ld)
	if err != nil {
		return Lead{}, err
	}

	if ld.ParentEmail != "" && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: ld.ParentName, Address: ld.ParentEmail}},
			Subject:      "We received your registration",
			TemplateName: "lead-contacted",
			TemplateData: struct {
				ParentName   string
				ParentPhone  string
				CourseTitles []string
			}{ld.ParentName, ld.ParentPhone, ld.CourseTitles},
		})
	}
	return ld, nil
}

// Reject closes a lead that will not be pursued. Converted leads cannot
// be rejected.
func (svc *Service) Reject(ctx context.Context, id string) (Lead, error) {
	ld, err := svc.repo.GetLeadByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if ld.Status != StatusPending && ld.Status != StatusContacted {
		return Lead{}, core.NewStateError("lead", ld.Status, StatusRejected)
	}
	ld.Status = StatusRejected
	return svc.repo.UpdateLead(ctx, ld)
}

// Convert turns a contacted lead into a real Parent + Student pair with
// unpaid enrollments for every interest title that resolves to a course.
// An existing parent with the lead's phone number is reused. On any
// failure every entity created so far is rolled back, so conversion never
// leaves half a family behind.
func (svc *Service) Convert(ctx context.Context, id string, cl ConvertLead) (ConversionResult, error) {
	ld, err := svc.repo.GetLeadByID(ctx, id)
	if err != nil {
		return ConversionResult{}, err
	}
	if ld.Status != StatusContacted {
		return ConversionResult{}, core.NewStateError("lead", ld.Status, StatusConverted)
	}

	var (
		createdUserIDs []string
		enrollments    []enrollment.Enrollment
	)
	rollback := func() {
		for _, enr := range enrollments {
			_ = svc.ledger.Remove(ctx, enr.CourseID, enr.StudentID)
		}
		if len(createdUserIDs) > 0 {
			_ = svc.users.Delete(ctx, createdUserIDs...)
		}
	}

	// reuse an existing parent when the phone number already resolves
	parent, err := svc.users.GetParentByPhone(ctx, ld.ParentPhone)
	if err != nil {
		if err != user.ErrParentNotFound {
			return ConversionResult{}, err
		}

		parentEmail := cl.ParentEmail
		if parentEmail == "" {
			parentEmail = ld.ParentEmail
		}
		if parentEmail == "" || cl.ParentPassword == "" {
			return ConversionResult{}, core.NewValidationError(nil,
				core.FieldError{Field: "parent_email", Error: "required to create the parent account"},
				core.FieldError{Field: "parent_password", Error: "required to create the parent account"},
			)
		}

		firstName, lastName := splitName(ld.ParentName)
		nu := user.NewUser{
			FirstName:       firstName,
			LastName:        lastName,
			Email:           parentEmail,
			Password:        cl.ParentPassword,
			PasswordConfirm: cl.ParentPassword,
			Phone:           ld.ParentPhone,
			Role:            user.RoleParent,
			Address:         cl.ParentAddress,
		}
		if err := nu.Validate(ctx, svc.users); err != nil {
			return ConversionResult{}, err
		}
		parent, err = svc.users.Create(ctx, nu)
		if err != nil {
			return ConversionResult{}, err
		}
		createdUserIDs = append(createdUserIDs, parent.ID)
	}

	firstName, lastName := splitName(ld.StudentName)
	nu := user.NewUser{
		FirstName:         firstName,
		LastName:          lastName,
		Email:             cl.StudentEmail,
		Password:          cl.StudentPassword,
		PasswordConfirm:   cl.StudentPassword,
		Role:              user.RoleStudent,
		ParentPhoneNumber: ld.ParentPhone,
	}
	if err := nu.Validate(ctx, svc.users); err != nil {
		rollback()
		return ConversionResult{}, err
	}
	student, err := svc.users.Create(ctx, nu)
	if err != nil {
		rollback()
		return ConversionResult{}, err
	}
	createdUserIDs = append(createdUserIDs, student.ID)

	opts := enrollment.Options{PaymentStatus: ld.PaymentStatus, Discount: ld.IsDiscount}
	for _, title := range ld.CourseTitles {
		course, ok, err := svc.resolveCourse(ctx, title)
		if err != nil {
			rollback()
			return ConversionResult{}, err
		}
		if !ok {
			continue // interest title no longer matches a course
		}
		enr, err := svc.ledger.Enroll(ctx, student.ID, course.ID, "", opts)
		if err != nil {
			rollback()
			return ConversionResult{}, err
		}
		enrollments = append(enrollments, enr)
	}

	ld.Status = StatusConverted
	ld, err = svc.repo.UpdateLead(ctx, ld)
	if err != nil {
		rollback()
		return ConversionResult{}, err
	}

	return ConversionResult{Lead: ld, Parent: parent, Student: student, Enrollments: enrollments}, nil
}

func (svc *Service) resolveCourse(ctx context.Context, title string) (catalog.Course, bool, error) {
	courses, err := svc.courses.Filter(ctx, catalog.QueryFilter{Search: title})
	if err != nil {
		return catalog.Course{}, false, err
	}
	for _, course := range courses {
		if strings.EqualFold(course.Title, title) {
			return course, true, nil
		}
	}
	return catalog.Course{}, false, nil
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}
