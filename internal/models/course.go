package models

import "time"

// Course represents a course row. InstructorID is nullable; when set it must
// reference an account with the instructor role.
type Course struct {
	ID           int64     `db:"id" json:"id"`
	Description  string    `db:"description" json:"description"`
	InstructorID *int64    `db:"instructor_id" json:"instructor_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail carries the course joined with its instructor's name.
type CourseDetail struct {
	Course
	InstructorName *string `db:"instructor_name" json:"instructor_name,omitempty"`
}
