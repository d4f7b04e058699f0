package lead_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/lead"
	"github.com/hoangvu/educenter/core/user"
	"github.com/hoangvu/educenter/services/email"
	"github.com/hoangvu/educenter/storage/inmem"
	"github.com/hoangvu/educenter/testutil"
)

type testEnv struct {
	svc     *lead.Service
	ledger  *enrollment.Service
	users   *user.Service
	repo    lead.Repository
	catRepo catalog.Repository
	usrRepo user.Repository
	teacher user.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db, err := inmem.Open()
	require.NoError(t, err)

	usrRepo := inmem.NewUserRepository(db)
	catRepo := inmem.NewCatalogRepository(db)
	repo := inmem.NewLeadRepository(db)
	conf := testutil.NewConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	catSvc := catalog.NewService(catRepo, usrSvc, nil)
	ledger := enrollment.NewService(inmem.NewEnrollmentRepository(db), catSvc, usrSvc)

	return testEnv{
		svc:     lead.NewService(repo, usrSvc, catSvc, ledger, mailSvc),
		ledger:  ledger,
		users:   usrSvc,
		repo:    repo,
		catRepo: catRepo,
		usrRepo: usrRepo,
		teacher: testutil.CreateUser(t, usrRepo, "Prof", "Chalk", "prof@test.vn", "", user.RoleEmployeeTeacher, true),
	}
}

func TestNewLead_Validate(t *testing.T) {
	tests := []struct {
		name    string
		nl      lead.NewLead
		wantErr bool
	}{
		{
			name: "valid",
			nl: lead.NewLead{
				ParentName: "Nguyen Thi Linh", ParentPhone: "0912345678",
				StudentName: "Nguyen Van An", CourseTitles: []string{"IELTS 6.5"},
			},
		},
		{
			name: "no course titles",
			nl: lead.NewLead{
				ParentName: "Nguyen Thi Linh", ParentPhone: "0912345678",
				StudentName: "Nguyen Van An",
			},
			wantErr: true,
		},
		{
			name: "phone with surrounding whitespace is trimmed",
			nl: lead.NewLead{
				ParentName: "Nguyen Thi Linh", ParentPhone: " 0912345678 ",
				StudentName: "Nguyen Van An", CourseTitles: []string{"IELTS 6.5"},
			},
		},
		{
			name: "bad phone",
			nl: lead.NewLead{
				ParentName: "Nguyen Thi Linh", ParentPhone: "123",
				StudentName: "Nguyen Van An", CourseTitles: []string{"IELTS 6.5"},
			},
			wantErr: true,
		},
		{
			name: "bad email",
			nl: lead.NewLead{
				ParentName: "Nguyen Thi Linh", ParentPhone: "0912345678", ParentEmail: "nope",
				StudentName: "Nguyen Van An", CourseTitles: []string{"IELTS 6.5"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nl.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_Record(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ld, err := env.svc.Record(ctx, lead.NewLead{
		ParentName:   "Nguyen Thi Linh",
		ParentPhone:  "0912345678",
		StudentName:  "Nguyen Van An",
		CourseTitles: []string{"IELTS 6.5"},
		IsDiscount:   true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ld.ID)
	assert.Equal(t, lead.StatusPending, ld.Status)
	assert.Equal(t, enrollment.PaymentUnpaid, ld.PaymentStatus)
	assert.True(t, ld.IsDiscount)
}

func TestService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("contacting notifies the prospect by email", func(t *testing.T) {
		emailsvc.SentMessages = nil
		ld := testutil.CreateLead(t, env.repo, "Nguyen Thi Linh", "0912345678", "Nguyen Van An", []string{"IELTS 6.5"}, lead.StatusPending)
		ld.ParentEmail = "linh@test.vn"
		_, err := env.repo.UpdateLead(ctx, ld)
		require.NoError(t, err)

		got, err := env.svc.MarkContacted(ctx, ld.ID)
		require.NoError(t, err)
		assert.Equal(t, lead.StatusContacted, got.Status)

		require.Len(t, emailsvc.SentMessages, 1)
		assert.Equal(t, "linh@test.vn", emailsvc.SentMessages[0].To[0].Address)
	})

	t.Run("contacting twice is a state error", func(t *testing.T) {
		ld := testutil.CreateLead(t, env.repo, "A", "0912345671", "B", []string{"IELTS 6.5"}, lead.StatusContacted)
		_, err := env.svc.MarkContacted(ctx, ld.ID)
		var sErr *core.StateError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, lead.StatusContacted, sErr.From)
	})

	t.Run("pending and contacted leads can be rejected", func(t *testing.T) {
		for _, status := range []string{lead.StatusPending, lead.StatusContacted} {
			ld := testutil.CreateLead(t, env.repo, "A", "0912345672", "B", []string{"IELTS 6.5"}, status)
			got, err := env.svc.Reject(ctx, ld.ID)
			require.NoError(t, err)
			assert.Equal(t, lead.StatusRejected, got.Status)
		}
	})

	t.Run("converted leads cannot be rejected", func(t *testing.T) {
		ld := testutil.CreateLead(t, env.repo, "A", "0912345673", "B", []string{"IELTS 6.5"}, lead.StatusConverted)
		_, err := env.svc.Reject(ctx, ld.ID)
		var sErr *core.StateError
		assert.ErrorAs(t, err, &sErr)
	})

	t.Run("rejected leads stay rejected", func(t *testing.T) {
		ld := testutil.CreateLead(t, env.repo, "A", "0912345674", "B", []string{"IELTS 6.5"}, lead.StatusRejected)
		_, err := env.svc.MarkContacted(ctx, ld.ID)
		var sErr *core.StateError
		assert.ErrorAs(t, err, &sErr)
	})

	t.Run("unknown lead", func(t *testing.T) {
		_, err := env.svc.MarkContacted(ctx, "nope")
		assert.Equal(t, lead.ErrNotFound, err)
	})
}

func TestService_Convert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ielts := testutil.CreateCourse(t, env.catRepo, "IELTS 6.5", env.teacher, 5000000, nil)
	testutil.CreateCourse(t, env.catRepo, "TOEIC", env.teacher, 3000000, nil)

	t.Run("only contacted leads convert", func(t *testing.T) {
		ld := testutil.CreateLead(t, env.repo, "Nguyen Thi Linh", "0912345678", "Nguyen Van An", []string{"IELTS 6.5"}, lead.StatusPending)
		_, err := env.svc.Convert(ctx, ld.ID, lead.ConvertLead{
			StudentEmail: "an@test.vn", StudentPassword: "s3cret",
		})
		var sErr *core.StateError
		assert.ErrorAs(t, err, &sErr)
	})

	t.Run("creating the parent requires credentials", func(t *testing.T) {
		ld := testutil.CreateLead(t, env.repo, "Nguyen Thi Linh", "0912345675", "Nguyen Van An", []string{"IELTS 6.5"}, lead.StatusContacted)
		_, err := env.svc.Convert(ctx, ld.ID, lead.ConvertLead{
			StudentEmail: "an@test.vn", StudentPassword: "s3cret",
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("full conversion creates parent, student and enrollments", func(t *testing.T) {
		ld := testutil.CreateLead(t, env.repo, "Nguyen Thi Linh", "0912345676", "Nguyen Van An",
			[]string{"IELTS 6.5", "Dropped Course", "TOEIC"}, lead.StatusContacted)
		ld.IsDiscount = true
		_, err := env.repo.UpdateLead(ctx, ld)
		require.NoError(t, err)

		res, err := env.svc.Convert(ctx, ld.ID, lead.ConvertLead{
			StudentEmail:    "an@test.vn",
			StudentPassword: "Brightm00n!",
			ParentEmail:     "linh@test.vn",
			ParentPassword:  "Brightm00n!",
			ParentAddress:   &user.Address{Ward: "Ward 5", City: "HCMC"},
		})
		require.NoError(t, err)

		assert.Equal(t, lead.StatusConverted, res.Lead.Status)

		assert.Equal(t, user.RoleParent, res.Parent.Role)
		assert.Equal(t, "Nguyen", res.Parent.FirstName)
		assert.Equal(t, "Thi Linh", res.Parent.LastName)
		assert.Equal(t, ld.ParentPhone, res.Parent.Phone)

		assert.Equal(t, user.RoleStudent, res.Student.Role)
		require.NotNil(t, res.Student.Student)
		assert.Equal(t, []string{res.Parent.ID}, res.Student.Student.ParentIDs)

		// the unmatched interest title is skipped, not an error
		require.Len(t, res.Enrollments, 2)
		for _, enr := range res.Enrollments {
			assert.Equal(t, enrollment.StatusActive, enr.Status)
			assert.Equal(t, enrollment.PaymentUnpaid, enr.PaymentStatus)
			assert.True(t, enr.Discount)
		}
	})

	t.Run("existing parent is reused", func(t *testing.T) {
		parent := testutil.CreateParent(t, env.usrRepo, "Linh", "reuse@test.vn", "0912345677")
		ld := testutil.CreateLead(t, env.repo, "Nguyen Thi Linh", parent.Phone, "Nguyen Van Binh", []string{"IELTS 6.5"}, lead.StatusContacted)

		res, err := env.svc.Convert(ctx, ld.ID, lead.ConvertLead{
			StudentEmail: "binh@test.vn", StudentPassword: "Brightm00n!",
		})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, res.Parent.ID)
		assert.Equal(t, []string{parent.ID}, res.Student.Student.ParentIDs)
	})

	t.Run("failed conversion rolls back everything", func(t *testing.T) {
		// the student email is already taken by the previous conversion
		ld := testutil.CreateLead(t, env.repo, "Tran Van Nam", "0912345679", "Tran Van Cuong", []string{"IELTS 6.5"}, lead.StatusContacted)

		_, err := env.svc.Convert(ctx, ld.ID, lead.ConvertLead{
			StudentEmail:    "an@test.vn", // duplicate
			StudentPassword: "Brightm00n!",
			ParentEmail:     "nam@test.vn",
			ParentPassword:  "Brightm00n!",
			ParentAddress:   &user.Address{Ward: "Ward 5", City: "HCMC"},
		})
		require.Error(t, err)

		// the freshly created parent is gone and the lead is untouched
		_, err = env.users.GetByEmail(ctx, "nam@test.vn")
		assert.Equal(t, user.ErrNotFound, err)

		got, err := env.svc.GetByID(ctx, ld.ID)
		require.NoError(t, err)
		assert.Equal(t, lead.StatusContacted, got.Status)

		// no stray enrollments either
		enrs, err := env.ledger.ForCourse(ctx, ielts.ID)
		require.NoError(t, err)
		for _, enr := range enrs {
			usr, err := env.users.GetByID(ctx, enr.StudentID)
			require.NoError(t, err)
			assert.NotEqual(t, "Cuong", usr.LastName)
		}
	})
}

func TestService_Filter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ld1 := testutil.CreateLead(t, env.repo, "Nguyen Thi Linh", "0912345678", "Nguyen Van An", []string{"IELTS 6.5"}, lead.StatusPending)
	ld2 := testutil.CreateLead(t, env.repo, "Tran Van Nam", "0912345679", "Tran Thi Mai", []string{"TOEIC"}, lead.StatusContacted)

	ids := func(leads []lead.Lead) map[string]bool {
		set := make(map[string]bool, len(leads))
		for _, ld := range leads {
			set[ld.ID] = true
		}
		return set
	}

	t.Run("empty filter returns all", func(t *testing.T) {
		leads, err := env.svc.Filter(ctx, lead.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, leads, 2)
	})

	t.Run("by status", func(t *testing.T) {
		leads, err := env.svc.Filter(ctx, lead.QueryFilter{Status: lead.StatusContacted})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{ld2.ID: true}, ids(leads))
	})

	t.Run("search matches names and phone", func(t *testing.T) {
		leads, err := env.svc.Filter(ctx, lead.QueryFilter{Search: "linh"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{ld1.ID: true}, ids(leads))

		leads, err = env.svc.Filter(ctx, lead.QueryFilter{Search: "0912345679"})
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{ld2.ID: true}, ids(leads))
	})
}
