package models

import "time"

// Student represents a learner registered in the institution. CGPA is a
// derived figure owned by the GPA aggregator; it is always recomputable
// from semester results and never hand-edited.
type Student struct {
	ID           string    `db:"id" json:"id"`
	StudentNo    string    `db:"student_no" json:"student_no"`
	FullName     string    `db:"full_name" json:"full_name"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	CGPA         float64   `db:"cgpa" json:"cgpa"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail includes department context for reporting reads.
type StudentDetail struct {
	Student
	DepartmentCode string `db:"department_code" json:"department_code"`
	DepartmentName string `db:"department_name" json:"department_name"`
}
