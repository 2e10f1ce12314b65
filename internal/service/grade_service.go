package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
}

type enrollmentReader interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type gpaRecomputer interface {
	OnGradeChanged(ctx context.Context, studentID, semesterID string) error
}

// RecordGradeRequest carries one grade assignment. Points are never part
// of the payload; they are derived from the letter.
type RecordGradeRequest struct {
	StudentID string   `json:"student_id" validate:"required"`
	CourseID  string   `json:"course_id" validate:"required"`
	Letter    string   `json:"letter" validate:"required"`
	Score     *float64 `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Comments  string   `json:"comments,omitempty"`
	GradedBy  string   `json:"graded_by" validate:"required"`
}

// BulkGradeResult reports the outcome of a bulk grading run.
type BulkGradeResult struct {
	Recorded int             `json:"recorded"`
	Skipped  []BulkGradeSkip `json:"skipped,omitempty"`
}

// BulkGradeSkip names one entry that was not recorded and why.
type BulkGradeSkip struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Reason    string `json:"reason"`
}

// GradeService owns the grade ledger. Recording a grade completes the
// enrollment the first time and overwrites the grade row on re-grading;
// every mutation triggers a synchronous GPA recompute for the affected
// student before the call returns.
type GradeService struct {
	repo        gradeRepository
	enrollments enrollmentReader
	recomputer  gpaRecomputer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(repo gradeRepository, enrollments enrollmentReader, recomputer gpaRecomputer, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		repo:        repo,
		enrollments: enrollments,
		recomputer:  recomputer,
		validator:   validate,
		logger:      logger,
	}
}

// RecordGrade assigns or overwrites the grade for a student's enrollment
// in a course and cascades the GPA recompute.
func (s *GradeService) RecordGrade(ctx context.Context, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	unlock := studentLocks.Lock(req.StudentID)
	defer unlock()

	grade, err := s.recordOne(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.recomputer.OnGradeChanged(ctx, grade.StudentID, grade.SemesterID); err != nil {
		return nil, err
	}
	return grade, nil
}

// BulkRecordGrades records a batch of grades. Invalid entries are skipped
// with a reason instead of failing the batch, and the recompute cascade
// runs once per affected (student, semester) pair.
func (s *GradeService) BulkRecordGrades(ctx context.Context, reqs []RecordGradeRequest) (*BulkGradeResult, error) {
	result := &BulkGradeResult{}
	type pair struct{ studentID, semesterID string }
	affected := make(map[pair]struct{})

	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			result.Skipped = append(result.Skipped, BulkGradeSkip{StudentID: req.StudentID, CourseID: req.CourseID, Reason: "invalid payload"})
			continue
		}
		unlock := studentLocks.Lock(req.StudentID)
		grade, err := s.recordOne(ctx, req)
		unlock()
		if err != nil {
			appErr := appErrors.FromError(err)
			reason := appErr.Message
			switch appErr.Code {
			case appErrors.ErrInvalidGrade.Code, appErrors.ErrNotEnrolled.Code:
			default:
				return nil, err
			}
			result.Skipped = append(result.Skipped, BulkGradeSkip{StudentID: req.StudentID, CourseID: req.CourseID, Reason: reason})
			continue
		}
		result.Recorded++
		affected[pair{grade.StudentID, grade.SemesterID}] = struct{}{}
	}

	for p := range affected {
		if err := s.recomputer.OnGradeChanged(ctx, p.studentID, p.semesterID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DeleteGrade removes a grade row and recomputes the student's GPA. The
// enrollment stays completed; deletion only takes the course out of the
// aggregation.
func (s *GradeService) DeleteGrade(ctx context.Context, id string) error {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}

	unlock := studentLocks.Lock(grade.StudentID)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return s.recomputer.OnGradeChanged(ctx, grade.StudentID, grade.SemesterID)
}

// GetByEnrollment returns the grade for an enrollment, if any.
func (s *GradeService) GetByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	grade, err := s.repo.FindByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if grade == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
	}
	return grade, nil
}

// recordOne performs the caller-locked upsert for a single grade entry
// and flips the enrollment to completed on first grading.
func (s *GradeService) recordOne(ctx context.Context, req RecordGradeRequest) (*models.Grade, error) {
	letter, ok := models.ParseGradeLetter(req.Letter)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidGrade, fmt.Sprintf("unknown grade letter %q", req.Letter))
	}
	points, _ := letter.Points()

	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment == nil {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "student is not enrolled in this course")
	}
	if enrollment.Status == models.EnrollmentStatusDropped {
		return nil, appErrors.Clone(appErrors.ErrNotEnrolled, "enrollment dropped")
	}

	grade := &models.Grade{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		CourseID:     enrollment.CourseID,
		SemesterID:   enrollment.SemesterID,
		Letter:       letter,
		Points:       points,
		Score:        req.Score,
		Comments:     req.Comments,
		GradedBy:     req.GradedBy,
	}
	if err := s.repo.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade")
	}

	if enrollment.Status == models.EnrollmentStatusActive {
		if err := s.enrollments.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusCompleted); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete enrollment")
		}
	}
	return grade, nil
}
