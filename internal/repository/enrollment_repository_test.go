package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

func TestEnrollmentFindByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "course_id", "enrolled_on"}).
		AddRow(int64(1), int64(10), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, course_id, enrolled_on FROM enrollments WHERE student_id = $1 LIMIT 1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	enrollment, err := repo.FindByStudent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), enrollment.CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentFindByStudentMiss(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT student_id, course_id, enrolled_on FROM enrollments").
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudent(context.Background(), 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{StudentID: 1, CourseID: 10}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.False(t, enrollment.EnrolledOn.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{StudentID: 1, CourseID: 10})
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListDetails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "student_email", "course_id", "course_description", "enrolled_on"}).
		AddRow(int64(1), "Alice", "a@example.com", int64(10), "Algebra", time.Now())
	mock.ExpectQuery("SELECT e.student_id, u.name AS student_name").
		WillReturnRows(rows)

	details, err := repo.ListDetails(context.Background())
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Alice", details[0].StudentName)
	assert.Equal(t, "Algebra", details[0].CourseDescription)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentDeleteByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE student_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByStudent(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
