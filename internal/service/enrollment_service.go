package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/authz"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByStudent(ctx context.Context, studentID int64) (*models.Enrollment, error)
	Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
	ListDetails(ctx context.Context) ([]models.EnrollmentDetail, error)
	ListDetailsByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, studentID, courseID int64) error
	DeleteByStudent(ctx context.Context, studentID int64) error
}

type enrollmentCourseLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type enrollmentUserLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// EnrollRequest is the student payload for enrolling in a course. The
// student identity comes from the verified token, never the body.
type EnrollRequest struct {
	CourseID int64 `json:"course_id" validate:"required"`
}

// EnrollmentService handles the enroll/unenroll lifecycle. A student holds
// at most one enrollment: none -> enrolled -> none.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   enrollmentCourseLookup
	users     enrollmentUserLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService creates an instance of EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseLookup, users enrollmentUserLookup, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, courses: courses, users: users, validator: validate, logger: logger}
}

// Enroll creates an enrollment for the calling student. The pre-check on an
// existing row is advisory; the unique index on student_id is the backstop
// for concurrent enrollments.
func (s *EnrollmentService) Enroll(ctx context.Context, callerID int64, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing required field: course_id")
	}

	caller, err := s.resolveStudent(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if _, err := s.repo.FindByStudent(ctx, caller.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "you must unenroll before enrolling in another course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	enrollment := &models.Enrollment{StudentID: caller.ID, CourseID: req.CourseID}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "you must unenroll before enrolling in another course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}

	s.logger.Info("student enrolled", zap.Int64("student_id", caller.ID), zap.Int64("course_id", req.CourseID))
	return enrollment, nil
}

// Unenroll removes the calling student's current enrollment.
func (s *EnrollmentService) Unenroll(ctx context.Context, callerID int64) error {
	caller, err := s.resolveStudent(ctx, callerID)
	if err != nil {
		return err
	}

	if _, err := s.repo.FindByStudent(ctx, caller.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "you are not enrolled in any course")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}

	if err := s.repo.DeleteByStudent(ctx, caller.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}

	s.logger.Info("student unenrolled", zap.Int64("student_id", caller.ID))
	return nil
}

// MyEnrollments lists the calling student's enrollments with course info.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, callerID int64) ([]models.EnrollmentDetail, error) {
	caller, err := s.resolveStudent(ctx, callerID)
	if err != nil {
		return nil, err
	}

	details, err := s.repo.ListDetailsByStudent(ctx, caller.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}

// ListAll returns every enrollment joined with student and course info.
func (s *EnrollmentService) ListAll(ctx context.Context) ([]models.EnrollmentDetail, error) {
	details, err := s.repo.ListDetails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, nil
}

// Remove deletes an enrollment for a specific student/course pair. Allowed
// for admins and for the student removing their own enrollment.
func (s *EnrollmentService) Remove(ctx context.Context, callerID, studentID, courseID int64) error {
	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "invalid user token")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load caller")
	}

	if _, err := s.repo.Find(ctx, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if err := authz.SelfOrAdmin(caller, studentID); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not authorized to remove this enrollment")
	}

	if err := s.repo.Delete(ctx, studentID, courseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// resolveStudent loads the caller and requires the student role.
func (s *EnrollmentService) resolveStudent(ctx context.Context, callerID int64) (*models.User, error) {
	caller, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid user token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load caller")
	}
	if err := authz.RoleIn(caller.Role, models.RoleStudent); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students only")
	}
	return caller, nil
}
