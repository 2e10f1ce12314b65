package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type studentDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type semesterResultReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.SemesterResultDetail, error)
}

type completedCounter interface {
	CountCompletedByStudent(ctx context.Context, studentID string) (int, error)
}

// HistoryService serves per-student reporting reads: the full academic
// history and the cumulative summary. Both reads are cached in Redis and
// invalidated by the GPA recompute cascade, so a cache hit never outlives
// a grade mutation.
type HistoryService struct {
	students    studentDetailReader
	results     semesterResultReader
	grades      gradedLedgerReader
	enrollments completedCounter
	redis       *redis.Client
	metrics     *MetricsService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewHistoryService constructs HistoryService. A nil redis client disables
// caching.
func NewHistoryService(students studentDetailReader, results semesterResultReader, grades gradedLedgerReader, enrollments completedCounter, redisClient *redis.Client, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &HistoryService{
		students:    students,
		results:     results,
		grades:      grades,
		enrollments: enrollments,
		redis:       redisClient,
		metrics:     metrics,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func historyCacheKey(studentID string) string {
	return fmt.Sprintf("history:%s", studentID)
}

func summaryCacheKey(studentID string) string {
	return fmt.Sprintf("summary:%s", studentID)
}

// GetAcademicHistory returns the student's semester-by-semester record,
// most recent semester first.
func (s *HistoryService) GetAcademicHistory(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	key := historyCacheKey(studentID)
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			var cached models.AcademicHistory
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				s.metrics.RecordCacheOperation(true)
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("history cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	history, err := s.buildHistory(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, jsonErr := json.Marshal(history); jsonErr == nil {
			if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("history cache write failed", zap.String("student_id", studentID), zap.Error(err))
			}
		}
	}
	return history, nil
}

// GetCumulativeSummary returns the student's aggregate figures.
func (s *HistoryService) GetCumulativeSummary(ctx context.Context, studentID string) (*models.CumulativeSummary, error) {
	key := summaryCacheKey(studentID)
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			var cached models.CumulativeSummary
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				s.metrics.RecordCacheOperation(true)
				return &cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("summary cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	summary, err := s.buildSummary(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, jsonErr := json.Marshal(summary); jsonErr == nil {
			if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("summary cache write failed", zap.String("student_id", studentID), zap.Error(err))
			}
		}
	}
	return summary, nil
}

// InvalidateStudent drops both cached reads for a student. Called by the
// GPA recompute cascade after every grade mutation.
func (s *HistoryService) InvalidateStudent(ctx context.Context, studentID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, historyCacheKey(studentID), summaryCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn("history cache invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *HistoryService) buildHistory(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester results")
	}

	history := &models.AcademicHistory{
		StudentID:      student.ID,
		StudentNo:      student.StudentNo,
		FullName:       student.FullName,
		DepartmentName: student.DepartmentName,
		CGPA:           student.CGPA,
		Semesters:      make([]models.SemesterHistory, 0, len(results)),
	}

	for _, result := range results {
		graded, err := s.grades.ListGradedForSemester(ctx, studentID, result.SemesterID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load graded enrollments")
		}
		courses := make([]models.HistoryCourse, 0, len(graded))
		for _, g := range graded {
			courses = append(courses, models.HistoryCourse{
				CourseCode: g.CourseCode,
				CourseName: g.CourseName,
				Credits:    g.Credits,
				Letter:     g.Letter,
				Points:     g.Points,
			})
		}
		history.Semesters = append(history.Semesters, models.SemesterHistory{
			SemesterID:   result.SemesterID,
			SemesterName: result.SemesterName,
			StartDate:    result.SemesterStartDate,
			GPA:          result.GPA,
			TotalCredits: result.TotalCredits,
			Courses:      courses,
		})
		history.TotalCredits += result.TotalCredits
	}
	return history, nil
}

func (s *HistoryService) buildSummary(ctx context.Context, studentID string) (*models.CumulativeSummary, error) {
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester results")
	}

	completed, err := s.enrollments.CountCompletedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completed enrollments")
	}

	summary := &models.CumulativeSummary{
		StudentID:            student.ID,
		CGPA:                 student.CGPA,
		SemesterCount:        len(results),
		CompletedCourseCount: completed,
	}
	for _, result := range results {
		summary.TotalCredits += result.TotalCredits
	}
	return summary, nil
}
