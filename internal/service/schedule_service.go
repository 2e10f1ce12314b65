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

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassScheduleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	FindSharingResources(ctx context.Context, semesterID string, facultyID, classroomID *string) ([]models.ClassScheduleDetail, error)
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Update(ctx context.Context, schedule *models.ClassSchedule) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

// CreateScheduleRequest describes payload for creating a schedule slot.
type CreateScheduleRequest struct {
	CourseID    string   `json:"course_id" validate:"required"`
	SemesterID  string   `json:"semester_id" validate:"required"`
	FacultyID   *string  `json:"faculty_id"`
	ClassroomID *string  `json:"classroom_id"`
	Days        []string `json:"days" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
}

// UpdateScheduleRequest updates an existing schedule slot.
type UpdateScheduleRequest struct {
	CourseID    string   `json:"course_id" validate:"required"`
	SemesterID  string   `json:"semester_id" validate:"required"`
	FacultyID   *string  `json:"faculty_id"`
	ClassroomID *string  `json:"classroom_id"`
	Days        []string `json:"days" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
}

// ScheduleService coordinates slot management and conflict detection for
// the faculty and classroom resource keys.
type ScheduleService struct {
	repo      scheduleRepository
	courses   courseReader
	semesters semesterReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, courses courseReader, semesters semesterReader, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, courses: courses, semesters: semesters, metrics: metrics, validator: validate, logger: logger}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassScheduleDetail, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
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
	return schedules, pagination, nil
}

// Create inserts a new schedule slot after conflict detection.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ClassScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	slot, err := s.buildSlot(req.CourseID, req.SemesterID, req.FacultyID, req.ClassroomID, req.Days, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	if err := s.ensureNoConflict(ctx, slot, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	detail, err := s.repo.FindDetailByID(ctx, slot.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule detail")
	}
	return detail, nil
}

// Update modifies an existing schedule slot. The slot being updated is
// excluded from the conflict scan by identity, not value equality.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.ClassScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	slot, err := s.buildSlot(req.CourseID, req.SemesterID, req.FacultyID, req.ClassroomID, req.Days, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	slot.ID = existing.ID
	slot.CreatedAt = existing.CreatedAt

	if err := s.ensureNoConflict(ctx, slot, existing.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	detail, err := s.repo.FindDetailByID(ctx, slot.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule detail")
	}
	return detail, nil
}

// Delete removes a schedule slot.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	return nil
}

func (s *ScheduleService) buildSlot(courseID, semesterID string, facultyID, classroomID *string, days []string, startTime, endTime string) (*models.ClassSchedule, error) {
	normalized, err := models.NormalizeDays(days)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, err := models.ParseMinute(startTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := models.ParseMinute(endTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return &models.ClassSchedule{
		CourseID:    courseID,
		SemesterID:  semesterID,
		FacultyID:   facultyID,
		ClassroomID: classroomID,
		DaysOfWeek:  normalized,
		StartMinute: start,
		EndMinute:   end,
	}, nil
}

// ensureNoConflict scans same-semester slots sharing the faculty or
// classroom resource key; the first day-set intersection with a time
// overlap short-circuits into a typed conflict.
func (s *ScheduleService) ensureNoConflict(ctx context.Context, slot *models.ClassSchedule, ignoreID string) error {
	if slot.FacultyID == nil && slot.ClassroomID == nil {
		return nil
	}
	existing, err := s.repo.FindSharingResources(ctx, slot.SemesterID, slot.FacultyID, slot.ClassroomID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}

	for _, item := range existing {
		if item.ID == ignoreID {
			continue
		}
		if !models.DaysIntersect(slot.DaysOfWeek, item.DaysOfWeek) {
			continue
		}
		if !models.Overlaps(slot.StartMinute, slot.EndMinute, item.StartMinute, item.EndMinute) {
			continue
		}
		if slot.FacultyID != nil && item.FacultyID != nil && *slot.FacultyID == *item.FacultyID {
			return s.wrapConflict(models.ConflictFaculty, "faculty already scheduled in an overlapping slot", item)
		}
		if slot.ClassroomID != nil && item.ClassroomID != nil && *slot.ClassroomID == *item.ClassroomID {
			return s.wrapConflict(models.ConflictRoom, "classroom already booked in an overlapping slot", item)
		}
	}
	return nil
}

func (s *ScheduleService) wrapConflict(kind models.ConflictKind, message string, existing models.ClassScheduleDetail) error {
	s.metrics.RecordScheduleConflict(string(kind))
	conflict := models.ScheduleConflict{
		ScheduleID:  existing.ID,
		CourseID:    existing.CourseID,
		CourseCode:  existing.CourseCode,
		DaysOfWeek:  existing.DaysOfWeek,
		StartMinute: existing.StartMinute,
		EndMinute:   existing.EndMinute,
		Kind:        kind,
	}
	domainErr := &models.ScheduleConflictError{Kind: kind, Message: message, Conflict: conflict}
	return appErrors.Wrap(domainErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}
