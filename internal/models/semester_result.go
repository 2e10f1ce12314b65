package models

import "time"

// SemesterResult stores the derived GPA for one (student, semester) pair.
// Rows are recreated by the GPA aggregator on every grade mutation and are
// never trusted over a fresh recomputation.
type SemesterResult struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	SemesterID   string    `db:"semester_id" json:"semester_id"`
	GPA          float64   `db:"gpa" json:"gpa"`
	TotalCredits int       `db:"total_credits" json:"total_credits"`
	ComputedAt   time.Time `db:"computed_at" json:"computed_at"`
}

// SemesterResultDetail enriches SemesterResult with semester info for
// ordered history reads.
type SemesterResultDetail struct {
	SemesterResult
	SemesterName      string    `db:"semester_name" json:"semester_name"`
	SemesterStartDate time.Time `db:"semester_start_date" json:"semester_start_date"`
}
