package models

import "time"

// HistoryCourse is one completed, graded course row in a semester history.
type HistoryCourse struct {
	CourseCode string      `json:"course_code"`
	CourseName string      `json:"course_name"`
	Credits    int         `json:"credits"`
	Letter     GradeLetter `json:"letter"`
	Points     float64     `json:"points"`
}

// SemesterHistory groups a student's completed courses under one semester
// together with the derived semester GPA.
type SemesterHistory struct {
	SemesterID   string          `json:"semester_id"`
	SemesterName string          `json:"semester_name"`
	StartDate    time.Time       `json:"start_date"`
	GPA          float64         `json:"gpa"`
	TotalCredits int             `json:"total_credits"`
	Courses      []HistoryCourse `json:"courses"`
}

// AcademicHistory is the full per-student record, most recent semester
// first, consumed by the reporting collaborator.
type AcademicHistory struct {
	StudentID      string            `json:"student_id"`
	StudentNo      string            `json:"student_no"`
	FullName       string            `json:"full_name"`
	DepartmentName string            `json:"department_name"`
	CGPA           float64           `json:"cgpa"`
	TotalCredits   int               `json:"total_credits"`
	Semesters      []SemesterHistory `json:"semesters"`
}

// CumulativeSummary is the compact aggregate figure set for a student.
type CumulativeSummary struct {
	StudentID            string  `json:"student_id"`
	CGPA                 float64 `json:"cgpa"`
	TotalCredits         int     `json:"total_credits"`
	SemesterCount        int     `json:"semester_count"`
	CompletedCourseCount int     `json:"completed_course_count"`
}
