package models

import "time"

// Enrollment links a student to a course. The pair is the primary key and a
// student holds at most one row at a time.
type Enrollment struct {
	StudentID  int64     `db:"student_id" json:"student_id"`
	CourseID   int64     `db:"course_id" json:"course_id"`
	EnrolledOn time.Time `db:"enrolled_on" json:"enrolled_on"`
}

// EnrollmentDetail is an enrollment joined with student and course info.
type EnrollmentDetail struct {
	StudentID         int64     `db:"student_id" json:"student_id"`
	StudentName       string    `db:"student_name" json:"student_name"`
	StudentEmail      string    `db:"student_email" json:"student_email"`
	CourseID          int64     `db:"course_id" json:"course_id"`
	CourseDescription string    `db:"course_description" json:"course_description"`
	EnrolledOn        time.Time `db:"enrolled_on" json:"enrolled_on"`
}
