package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangvu/educenter/core"
	"github.com/hoangvu/educenter/core/catalog"
	"github.com/hoangvu/educenter/core/enrollment"
	"github.com/hoangvu/educenter/core/schedule"
	"github.com/hoangvu/educenter/core/user"
	"github.com/hoangvu/educenter/storage/inmem"
	"github.com/hoangvu/educenter/testutil"
)

type testEnv struct {
	svc     *enrollment.Service
	catRepo catalog.Repository
	clsRepo schedule.Repository
	usrRepo user.Repository
	teacher user.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db, err := inmem.Open()
	require.NoError(t, err)

	usrRepo := inmem.NewUserRepository(db)
	catRepo := inmem.NewCatalogRepository(db)
	conf := testutil.NewConfig()
	usrSvc := user.NewService(usrRepo, nil, conf)
	catSvc := catalog.NewService(catRepo, usrSvc, nil)

	return testEnv{
		svc:     enrollment.NewService(inmem.NewEnrollmentRepository(db), catSvc, usrSvc),
		catRepo: catRepo,
		clsRepo: inmem.NewScheduleRepository(db),
		usrRepo: usrRepo,
		teacher: testutil.CreateUser(t, usrRepo, "Prof", "Chalk", "prof@test.vn", "", user.RoleEmployeeTeacher, true),
	}
}

func (env testEnv) student(t *testing.T, email string) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.usrRepo, "Student", email, email, "", user.RoleStudent, true)
}

func TestService_Enroll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.catRepo, "IELTS 6.5", env.teacher, 5000000, testutil.IntPtr(2))
	cls := testutil.CreateClass(t, env.clsRepo, "IELTS A1", "201", course.ID)
	otherCourse := testutil.CreateCourse(t, env.catRepo, "TOEIC", env.teacher, 3000000, nil)

	s1 := env.student(t, "s1@test.vn")
	s2 := env.student(t, "s2@test.vn")
	s3 := env.student(t, "s3@test.vn")

	t.Run("unknown student", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, "nope", course.ID, "")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("not a student", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, env.teacher.ID, course.ID, "")
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, s1.ID, "nope", "")
		assert.Equal(t, catalog.ErrCourseNotFound, err)
	})

	t.Run("class must belong to the course", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, s1.ID, otherCourse.ID, cls.ID)
		assert.Equal(t, enrollment.ErrClassMismatch, err)
	})

	t.Run("enrolling via a class joins the course too", func(t *testing.T) {
		enr, err := env.svc.Enroll(ctx, s1.ID, course.ID, cls.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentUnpaid, enr.PaymentStatus)
		assert.Equal(t, enrollment.StatusActive, enr.Status)

		byCourse, err := env.svc.ForCourse(ctx, course.ID)
		require.NoError(t, err)
		byClass, err := env.svc.ForClass(ctx, cls.ID)
		require.NoError(t, err)
		require.Len(t, byCourse, 1)
		require.Len(t, byClass, 1)
		assert.Equal(t, byCourse[0].ID, byClass[0].ID)
	})

	t.Run("duplicate active enrollment is rejected", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, s1.ID, course.ID, "")
		assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	})

	t.Run("capacity is enforced", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, s2.ID, course.ID, "", enrollment.Options{PaymentStatus: enrollment.PaymentPaid, Discount: true})
		require.NoError(t, err)

		_, err = env.svc.Enroll(ctx, s3.ID, course.ID, "")
		assert.Equal(t, enrollment.ErrCourseFull, err)
	})

	t.Run("closing frees a seat", func(t *testing.T) {
		require.NoError(t, env.svc.Remove(ctx, course.ID, s2.ID))

		_, err := env.svc.Enroll(ctx, s3.ID, course.ID, "")
		require.NoError(t, err)
	})

	t.Run("re-enrolling into a full course reports the duplicate", func(t *testing.T) {
		// both violations hold; the duplicate check wins in every store
		_, err := env.svc.Enroll(ctx, s1.ID, course.ID, "")
		assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)
	})
}

func TestService_Remove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.catRepo, "IELTS 6.5", env.teacher, 5000000, nil)
	s1 := env.student(t, "s1@test.vn")

	enr, err := env.svc.Enroll(ctx, s1.ID, course.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.svc.Remove(ctx, course.ID, s1.ID))

	closed, err := env.svc.GetByID(ctx, enr.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	active, err := env.svc.ForStudent(ctx, s1.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// removing an absent student is a no-op, not an error
	assert.NoError(t, env.svc.Remove(ctx, course.ID, s1.ID))
	assert.NoError(t, env.svc.Remove(ctx, course.ID, "nope"))
}

func TestService_Transfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	src := testutil.CreateCourse(t, env.catRepo, "IELTS 6.5", env.teacher, 5000000, nil)
	dst := testutil.CreateCourse(t, env.catRepo, "TOEIC", env.teacher, 3000000, testutil.IntPtr(1))

	s1 := env.student(t, "s1@test.vn")
	s2 := env.student(t, "s2@test.vn")

	srcEnr, err := env.svc.Enroll(ctx, s1.ID, src.ID, "", enrollment.Options{PaymentStatus: enrollment.PaymentPaid, Discount: true})
	require.NoError(t, err)

	t.Run("same course", func(t *testing.T) {
		_, err := env.svc.Transfer(ctx, s1.ID, src.ID, src.ID)
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("unknown target course", func(t *testing.T) {
		_, err := env.svc.Transfer(ctx, s1.ID, src.ID, "nope")
		assert.Equal(t, catalog.ErrCourseNotFound, err)
	})

	t.Run("no active enrollment in the source course", func(t *testing.T) {
		_, err := env.svc.Transfer(ctx, s2.ID, src.ID, dst.ID)
		assert.Equal(t, enrollment.ErrNotFound, err)
	})

	t.Run("full target leaves the student in the source course", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, s2.ID, dst.ID, "")
		require.NoError(t, err)

		_, err = env.svc.Transfer(ctx, s1.ID, src.ID, dst.ID)
		assert.Equal(t, enrollment.ErrCourseFull, err)

		active, err := env.svc.ForStudent(ctx, s1.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, src.ID, active[0].CourseID)
	})

	t.Run("swap closes the source and opens an unpaid target enrollment", func(t *testing.T) {
		require.NoError(t, env.svc.Remove(ctx, dst.ID, s2.ID))

		moved, err := env.svc.Transfer(ctx, s1.ID, src.ID, dst.ID)
		require.NoError(t, err)
		assert.Equal(t, dst.ID, moved.CourseID)
		assert.Equal(t, enrollment.PaymentUnpaid, moved.PaymentStatus)
		assert.True(t, moved.Discount)
		assert.NotEqual(t, srcEnr.ID, moved.ID)

		old, err := env.svc.GetByID(ctx, srcEnr.ID)
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusClosed, old.Status)

		// never zero or two active enrollments
		active, err := env.svc.ForStudent(ctx, s1.ID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, dst.ID, active[0].CourseID)
	})
}

func TestService_PaymentAndDiscount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course := testutil.CreateCourse(t, env.catRepo, "IELTS 6.5", env.teacher, 5000000, nil)
	s1 := env.student(t, "s1@test.vn")

	enr, err := env.svc.Enroll(ctx, s1.ID, course.ID, "")
	require.NoError(t, err)

	t.Run("invalid payment status", func(t *testing.T) {
		_, err := env.svc.SetPaymentStatus(ctx, enr.ID, "partial")
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "payment_status", vErr.Fields[0].Field)
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, err := env.svc.SetPaymentStatus(ctx, "nope", enrollment.PaymentPaid)
		assert.Equal(t, enrollment.ErrNotFound, err)
	})

	t.Run("mark paid, then unpaid again", func(t *testing.T) {
		updated, err := env.svc.SetPaymentStatus(ctx, enr.ID, enrollment.PaymentPaid)
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentPaid, updated.PaymentStatus)

		updated, err = env.svc.SetPaymentStatus(ctx, enr.ID, enrollment.PaymentUnpaid)
		require.NoError(t, err)
		assert.Equal(t, enrollment.PaymentUnpaid, updated.PaymentStatus)
	})

	t.Run("discount flag", func(t *testing.T) {
		updated, err := env.svc.SetDiscount(ctx, enr.ID, true)
		require.NoError(t, err)
		assert.True(t, updated.Discount)
	})
}

func TestService_ComputeOutstanding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ielts := testutil.CreateCourse(t, env.catRepo, "IELTS 6.5", env.teacher, 5000000, nil)
	toeic := testutil.CreateCourse(t, env.catRepo, "TOEIC", env.teacher, 3000000, nil)

	s1 := env.student(t, "s1@test.vn")
	s2 := env.student(t, "s2@test.vn")
	s3 := env.student(t, "s3@test.vn")

	// unpaid, full price
	_, err := env.svc.Enroll(ctx, s1.ID, ielts.ID, "")
	require.NoError(t, err)
	// unpaid, discounted
	_, err = env.svc.Enroll(ctx, s2.ID, toeic.ID, "", enrollment.Options{Discount: true})
	require.NoError(t, err)
	// paid, ignored
	_, err = env.svc.Enroll(ctx, s3.ID, ielts.ID, "", enrollment.Options{PaymentStatus: enrollment.PaymentPaid})
	require.NoError(t, err)

	total, err := env.svc.ComputeOutstanding(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5000000+3000000*enrollment.DiscountRate, total, 0.001)
}
