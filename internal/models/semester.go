package models

import "time"

// Semester is one academic term.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
}

// SemesterFilter describes query params for listing semesters.
type SemesterFilter struct {
	IsActive  *bool
	Page      int
	PageSize  int
	SortOrder string
}
