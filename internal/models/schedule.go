package models

import (
	"time"

	"github.com/lib/pq"
)

// ClassSchedule is a weekly meeting pattern for a course offering within a
// semester. Times are minutes since midnight; days_of_week holds canonical
// weekday codes. Faculty and classroom are optional resource keys for
// conflict checking.
type ClassSchedule struct {
	ID          string         `db:"id" json:"id"`
	CourseID    string         `db:"course_id" json:"course_id"`
	SemesterID  string         `db:"semester_id" json:"semester_id"`
	FacultyID   *string        `db:"faculty_id" json:"faculty_id,omitempty"`
	ClassroomID *string        `db:"classroom_id" json:"classroom_id,omitempty"`
	DaysOfWeek  pq.StringArray `db:"days_of_week" json:"days_of_week"`
	StartMinute int            `db:"start_minute" json:"start_minute"`
	EndMinute   int            `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassScheduleDetail enriches ClassSchedule with course and semester info.
type ClassScheduleDetail struct {
	ClassSchedule
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	CourseCredits int    `db:"course_credits" json:"course_credits"`
	SemesterName  string `db:"semester_name" json:"semester_name"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	SemesterID  string
	CourseID    string
	FacultyID   string
	ClassroomID string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// ConflictKind identifies which resource key a schedule conflict is on.
type ConflictKind string

const (
	ConflictFaculty ConflictKind = "FACULTY"
	ConflictRoom    ConflictKind = "ROOM"
	ConflictStudent ConflictKind = "STUDENT"
)

// ScheduleConflict describes the existing slot that caused a conflict.
type ScheduleConflict struct {
	ScheduleID  string       `json:"schedule_id"`
	CourseID    string       `json:"course_id"`
	CourseCode  string       `json:"course_code"`
	DaysOfWeek  []string     `json:"days_of_week"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
	Kind        ConflictKind `json:"kind"`
}

// ScheduleConflictError is returned when a candidate slot collides with an
// existing one on a shared resource key.
type ScheduleConflictError struct {
	Kind     ConflictKind     `json:"kind"`
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
