package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByStudent returns the student's current enrollment, if any.
func (r *EnrollmentRepository) FindByStudent(ctx context.Context, studentID int64) (*models.Enrollment, error) {
	const query = `SELECT student_id, course_id, enrolled_on FROM enrollments WHERE student_id = $1 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by student: %w", err)
	}
	return &enrollment, nil
}

// Find returns the enrollment for a specific student/course pair.
func (r *EnrollmentRepository) Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	const query = `SELECT student_id, course_id, enrolled_on FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListDetails returns all enrollments joined with student and course info.
func (r *EnrollmentRepository) ListDetails(ctx context.Context) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.student_id, u.name AS student_name, u.email AS student_email,
        e.course_id, c.description AS course_description, e.enrolled_on
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        ORDER BY e.enrolled_on DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query); err != nil {
		return nil, fmt.Errorf("list enrollment details: %w", err)
	}
	return details, nil
}

// ListDetailsByStudent returns the student's enrollments with course info.
func (r *EnrollmentRepository) ListDetailsByStudent(ctx context.Context, studentID int64) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.student_id, u.name AS student_name, u.email AS student_email,
        e.course_id, c.description AS course_description, e.enrolled_on
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.enrolled_on DESC`
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return details, nil
}

// Create inserts a new enrollment. The unique index on student_id is the
// authoritative single-enrollment check; its violation propagates.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.EnrolledOn.IsZero() {
		enrollment.EnrolledOn = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (student_id, course_id, enrolled_on)
        VALUES (:student_id, :course_id, :enrolled_on)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("create enrollment: %w", ErrDuplicate)
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Delete removes the enrollment for a student/course pair.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID int64) error {
	const query = `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, courseID); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// DeleteByStudent removes the student's current enrollment.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID int64) error {
	const query = `DELETE FROM enrollments WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID); err != nil {
		return fmt.Errorf("delete student enrollment: %w", err)
	}
	return nil
}
