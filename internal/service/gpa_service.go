package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type gradedLedgerReader interface {
	ListGradedForSemester(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error)
}

type semesterResultRepository interface {
	Upsert(ctx context.Context, result *models.SemesterResult) error
	ListByStudent(ctx context.Context, studentID string) ([]models.SemesterResultDetail, error)
}

type cgpaUpdater interface {
	UpdateCGPA(ctx context.Context, id string, cgpa float64) error
}

type historyInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// GPAService derives semester and cumulative GPA figures. Both recomputes
// are idempotent: they read the full graded ledger and overwrite the
// derived rows, so replays and reordering of grade mutations converge on
// the same values.
//
// The cumulative figure is a credit-weighted mean over the already rounded
// semester GPAs, not over raw grade points.
type GPAService struct {
	grades   gradedLedgerReader
	results  semesterResultRepository
	students cgpaUpdater
	history  historyInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewGPAService constructs GPAService.
func NewGPAService(grades gradedLedgerReader, results semesterResultRepository, students cgpaUpdater, history historyInvalidator, metrics *MetricsService, logger *zap.Logger) *GPAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GPAService{
		grades:   grades,
		results:  results,
		students: students,
		history:  history,
		metrics:  metrics,
		logger:   logger,
	}
}

// RecomputeSemesterGPA rebuilds the semester result row for one student
// and semester from the graded ledger. With no graded credits the row is
// written as 0.00 over 0 credits.
func (s *GPAService) RecomputeSemesterGPA(ctx context.Context, studentID, semesterID string) (*models.SemesterResult, error) {
	graded, err := s.grades.ListGradedForSemester(ctx, studentID, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded enrollments")
	}

	var weighted float64
	var credits int
	for _, g := range graded {
		weighted += g.Points * float64(g.Credits)
		credits += g.Credits
	}

	gpa := 0.0
	if credits > 0 {
		gpa = round2(weighted / float64(credits))
	}

	result := &models.SemesterResult{
		StudentID:    studentID,
		SemesterID:   semesterID,
		GPA:          gpa,
		TotalCredits: credits,
	}
	if err := s.results.Upsert(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store semester result")
	}
	s.logger.Debug("semester gpa recomputed",
		zap.String("student_id", studentID),
		zap.String("semester_id", semesterID),
		zap.Float64("gpa", gpa),
		zap.Int("total_credits", credits))
	return result, nil
}

// RecomputeCumulativeGPA rebuilds the student's CGPA as the credit-weighted
// mean over all stored semester results. Semesters with zero credits
// contribute nothing.
func (s *GPAService) RecomputeCumulativeGPA(ctx context.Context, studentID string) (float64, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester results")
	}

	var weighted float64
	var credits int
	for _, r := range results {
		weighted += r.GPA * float64(r.TotalCredits)
		credits += r.TotalCredits
	}

	cgpa := 0.0
	if credits > 0 {
		cgpa = round2(weighted / float64(credits))
	}
	if err := s.students.UpdateCGPA(ctx, studentID, cgpa); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store cgpa")
	}
	s.logger.Debug("cumulative gpa recomputed",
		zap.String("student_id", studentID),
		zap.Float64("cgpa", cgpa))
	return cgpa, nil
}

// OnGradeChanged runs the full recompute cascade for one student after a
// grade mutation in the given semester, then drops the student's cached
// history reads.
func (s *GPAService) OnGradeChanged(ctx context.Context, studentID, semesterID string) error {
	if _, err := s.RecomputeSemesterGPA(ctx, studentID, semesterID); err != nil {
		return err
	}
	if _, err := s.RecomputeCumulativeGPA(ctx, studentID); err != nil {
		return err
	}
	s.metrics.RecordGPARecompute()
	if s.history != nil {
		s.history.InvalidateStudent(ctx, studentID)
	}
	return nil
}

// RecomputeStudent replays the full recompute cascade for every semester
// the student has a result row for. Used by the administrative recompute
// endpoint to repair derived figures.
func (s *GPAService) RecomputeStudent(ctx context.Context, studentID string) (float64, error) {
	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester results")
	}
	for _, r := range results {
		if _, err := s.RecomputeSemesterGPA(ctx, studentID, r.SemesterID); err != nil {
			return 0, err
		}
	}
	cgpa, err := s.RecomputeCumulativeGPA(ctx, studentID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordGPARecompute()
	if s.history != nil {
		s.history.InvalidateStudent(ctx, studentID)
	}
	return cgpa, nil
}

// round2 rounds half away from zero to two decimals, matching how the
// grade scale publishes GPA figures.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
