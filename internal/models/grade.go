package models

import (
	"strings"
	"time"
)

// GradeLetter is a letter grade from the closed institutional scale.
type GradeLetter string

// The letter grade scale.
const (
	GradeA      GradeLetter = "A"
	GradeAMinus GradeLetter = "A-"
	GradeBPlus  GradeLetter = "B+"
	GradeB      GradeLetter = "B"
	GradeBMinus GradeLetter = "B-"
	GradeCPlus  GradeLetter = "C+"
	GradeC      GradeLetter = "C"
	GradeCMinus GradeLetter = "C-"
	GradeD      GradeLetter = "D"
	GradeF      GradeLetter = "F"
)

// gradePoints is the fixed, total letter-to-points table. The point value
// stored on a grade row is always derived from this table, never supplied
// by the caller.
var gradePoints = map[GradeLetter]float64{
	GradeA:      4.00,
	GradeAMinus: 3.70,
	GradeBPlus:  3.30,
	GradeB:      3.00,
	GradeBMinus: 2.70,
	GradeCPlus:  2.30,
	GradeC:      2.00,
	GradeCMinus: 1.70,
	GradeD:      1.00,
	GradeF:      0.00,
}

// ParseGradeLetter normalizes a raw letter and reports whether it belongs
// to the grading scale.
func ParseGradeLetter(raw string) (GradeLetter, bool) {
	letter := GradeLetter(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := gradePoints[letter]
	return letter, ok
}

// Points returns the grade-point value for the letter.
func (l GradeLetter) Points() (float64, bool) {
	points, ok := gradePoints[l]
	return points, ok
}

// Grade is the single grade row for an enrollment. Re-grading overwrites
// the row; it never appends a second attempt.
type Grade struct {
	ID           string      `db:"id" json:"id"`
	EnrollmentID string      `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string      `db:"student_id" json:"student_id"`
	CourseID     string      `db:"course_id" json:"course_id"`
	SemesterID   string      `db:"semester_id" json:"semester_id"`
	Letter       GradeLetter `db:"letter" json:"letter"`
	Points       float64     `db:"points" json:"points"`
	Score        *float64    `db:"score" json:"score,omitempty"`
	Comments     string      `db:"comments" json:"comments,omitempty"`
	GradedBy     string      `db:"graded_by" json:"graded_by"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// GradedEnrollment is the aggregation row joining a completed enrollment
// with its grade and the live course credit weight.
type GradedEnrollment struct {
	EnrollmentID string      `db:"enrollment_id" json:"enrollment_id"`
	CourseID     string      `db:"course_id" json:"course_id"`
	CourseCode   string      `db:"course_code" json:"course_code"`
	CourseName   string      `db:"course_name" json:"course_name"`
	Credits      int         `db:"credits" json:"credits"`
	Letter       GradeLetter `db:"letter" json:"letter"`
	Points       float64     `db:"points" json:"points"`
}
