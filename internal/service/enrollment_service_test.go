package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	byStudent map[int64]*models.Enrollment
	createErr error
	deleted   [][2]int64
}

func (m *mockEnrollmentRepo) FindByStudent(ctx context.Context, studentID int64) (*models.Enrollment, error) {
	if e, ok := m.byStudent[studentID]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	if e, ok := m.byStudent[studentID]; ok && e.CourseID == courseID {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListDetails(ctx context.Context) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) ListDetailsByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if enrollment.EnrolledOn.IsZero() {
		enrollment.EnrolledOn = time.Now().UTC()
	}
	if m.byStudent == nil {
		m.byStudent = make(map[int64]*models.Enrollment)
	}
	m.byStudent[enrollment.StudentID] = enrollment
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, studentID, courseID int64) error {
	m.deleted = append(m.deleted, [2]int64{studentID, courseID})
	delete(m.byStudent, studentID)
	return nil
}

func (m *mockEnrollmentRepo) DeleteByStudent(ctx context.Context, studentID int64) error {
	delete(m.byStudent, studentID)
	return nil
}

type stubCourseLookup struct {
	courses map[int64]*models.Course
}

func (s *stubCourseLookup) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := s.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type stubUserLookup struct {
	users map[int64]*models.User
}

func (s *stubUserLookup) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newTestEnrollmentService(repo *mockEnrollmentRepo, courses *stubCourseLookup, users *stubUserLookup) *EnrollmentService {
	return NewEnrollmentService(repo, courses, users, validator.New(), zap.NewNop())
}

func enrollmentFixtures() (*mockEnrollmentRepo, *stubCourseLookup, *stubUserLookup) {
	repo := &mockEnrollmentRepo{byStudent: make(map[int64]*models.Enrollment)}
	courses := &stubCourseLookup{courses: map[int64]*models.Course{
		10: {ID: 10, Description: "Algebra"},
	}}
	users := &stubUserLookup{users: map[int64]*models.User{
		1: {ID: 1, Role: models.RoleStudent},
		2: {ID: 2, Role: models.RoleStudent},
		9: {ID: 9, Role: models.RoleAdmin},
	}}
	return repo, courses, users
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	enrollment, err := svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), enrollment.StudentID)
	assert.Equal(t, int64(10), enrollment.CourseID)
	assert.False(t, enrollment.EnrolledOn.IsZero())
}

func TestEnrollmentServiceEnrollUnknownCourse(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	_, err := svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 404})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "course not found", appErr.Message)
}

func TestEnrollmentServiceEnrollTwiceConflicts(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	_, err := svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 10})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 10})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "you must unenroll before enrolling in another course", appErr.Message)
}

func TestEnrollmentServiceEnrollConcurrentDuplicate(t *testing.T) {
	// The advisory pre-check misses but the unique index catches the race.
	repo, courses, users := enrollmentFixtures()
	repo.createErr = repoDuplicateErr()
	svc := newTestEnrollmentService(repo, courses, users)

	_, err := svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 10})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestEnrollmentServiceEnrollRequiresStudentRole(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	_, err := svc.Enroll(context.Background(), 9, EnrollRequest{CourseID: 10})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestEnrollmentServiceEnrollVanishedCaller(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	_, err := svc.Enroll(context.Background(), 404, EnrollRequest{CourseID: 10})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestEnrollmentServiceUnenrollWithoutEnrollment(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	err := svc.Unenroll(context.Background(), 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "you are not enrolled in any course", appErr.Message)
}

func TestEnrollmentServiceUnenrollThenReenroll(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	_, err := svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 10})
	require.NoError(t, err)
	require.NoError(t, svc.Unenroll(context.Background(), 1))

	_, err = svc.Enroll(context.Background(), 1, EnrollRequest{CourseID: 10})
	require.NoError(t, err)
}

func TestEnrollmentServiceRemoveAsAdmin(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	repo.byStudent[1] = &models.Enrollment{StudentID: 1, CourseID: 10}
	svc := newTestEnrollmentService(repo, courses, users)

	require.NoError(t, svc.Remove(context.Background(), 9, 1, 10))
	assert.Equal(t, [][2]int64{{1, 10}}, repo.deleted)
}

func TestEnrollmentServiceRemoveOwnEnrollment(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	repo.byStudent[1] = &models.Enrollment{StudentID: 1, CourseID: 10}
	svc := newTestEnrollmentService(repo, courses, users)

	require.NoError(t, svc.Remove(context.Background(), 1, 1, 10))
}

func TestEnrollmentServiceRemoveOtherStudentForbidden(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	repo.byStudent[1] = &models.Enrollment{StudentID: 1, CourseID: 10}
	svc := newTestEnrollmentService(repo, courses, users)

	err := svc.Remove(context.Background(), 2, 1, 10)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, "you are not authorized to remove this enrollment", appErr.Message)
}

func TestEnrollmentServiceRemoveMissingEnrollment(t *testing.T) {
	repo, courses, users := enrollmentFixtures()
	svc := newTestEnrollmentService(repo, courses, users)

	err := svc.Remove(context.Background(), 9, 1, 10)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
