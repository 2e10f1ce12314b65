package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type scheduleReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.ClassScheduleDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollStudentRequest describes enrollment creation request.
type EnrollStudentRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ScheduleID string `json:"schedule_id" validate:"required"`
}

// EnrollmentService governs the enrollment lifecycle: creation guarded by
// duplicate, retake and time-conflict rules, and the terminal drop
// transition. Completion happens only through the grade ledger.
type EnrollmentService struct {
	repo      enrollmentRepository
	schedules scheduleReader
	students  studentReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, schedules scheduleReader, students studentReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		schedules: schedules,
		students:  students,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Enroll registers a student to a course offering. The whole
// check-then-insert sequence runs under the student's lock.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	schedule, err := s.schedules.FindDetailByID(ctx, req.ScheduleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}

	unlock := studentLocks.Lock(req.StudentID)
	defer unlock()

	existing, err := s.repo.FindByStudentAndCourse(ctx, req.StudentID, schedule.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if existing != nil {
		if existing.Status == models.EnrollmentStatusCompleted {
			return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, fmt.Sprintf("course %s already completed", schedule.CourseCode))
		}
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("already enrolled in course %s", schedule.CourseCode))
	}

	if err := s.checkStudentTimeConflict(ctx, req.StudentID, schedule); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		ScheduleID: schedule.ID,
		CourseID:   schedule.CourseID,
		SemesterID: schedule.SemesterID,
		Status:     models.EnrollmentStatusActive,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Drop marks an enrollment as dropped. Dropped is terminal; reinstatement
// does not exist in this core.
func (s *EnrollmentService) Drop(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	unlock := studentLocks.Lock(enrollment.StudentID)
	defer unlock()

	// The first read only located the student; re-read under the lock so a
	// grade recording that just completed this enrollment is visible.
	enrollment, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	switch enrollment.Status {
	case models.EnrollmentStatusDropped:
		return nil, appErrors.Clone(appErrors.ErrAlreadyDropped, "")
	case models.EnrollmentStatusCompleted:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "completed enrollment cannot be dropped")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusDropped); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// checkStudentTimeConflict applies the overlap predicate between the
// candidate slot and the student's other active enrollments in the same
// semester.
func (s *EnrollmentService) checkStudentTimeConflict(ctx context.Context, studentID string, candidate *models.ClassScheduleDetail) error {
	active, err := s.repo.ListActiveByStudentAndSemester(ctx, studentID, candidate.SemesterID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active enrollments")
	}
	if len(active) == 0 {
		return nil
	}
	ids := make([]string, 0, len(active))
	for _, enrollment := range active {
		ids = append(ids, enrollment.ScheduleID)
	}
	others, err := s.schedules.ListByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrolled schedules")
	}
	for _, other := range others {
		if other.ID == candidate.ID {
			continue
		}
		if !models.DaysIntersect(candidate.DaysOfWeek, other.DaysOfWeek) {
			continue
		}
		if !models.Overlaps(candidate.StartMinute, candidate.EndMinute, other.StartMinute, other.EndMinute) {
			continue
		}
		s.metrics.RecordScheduleConflict(string(models.ConflictStudent))
		conflict := models.ScheduleConflict{
			ScheduleID:  other.ID,
			CourseID:    other.CourseID,
			CourseCode:  other.CourseCode,
			DaysOfWeek:  other.DaysOfWeek,
			StartMinute: other.StartMinute,
			EndMinute:   other.EndMinute,
			Kind:        models.ConflictStudent,
		}
		message := fmt.Sprintf("time conflict with %s (%s %s-%s)",
			other.CourseCode, strings.Join(other.DaysOfWeek, ","),
			models.FormatMinute(other.StartMinute), models.FormatMinute(other.EndMinute))
		domainErr := &models.ScheduleConflictError{Kind: models.ConflictStudent, Message: message, Conflict: conflict}
		return appErrors.Wrap(domainErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, message)
	}
	return nil
}
