package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

const scheduleDetailColumns = `cs.id, cs.course_id, cs.semester_id, cs.faculty_id, cs.classroom_id,
        cs.days_of_week, cs.start_minute, cs.end_minute, cs.created_at, cs.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits AS course_credits, s.name AS semester_name`

const scheduleDetailJoins = `FROM class_schedules cs
LEFT JOIN courses c ON c.id = cs.course_id
LEFT JOIN semesters s ON s.id = cs.semester_id`

// ScheduleRepository handles persistence of class schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedules filtered by the provided criteria.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassScheduleDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY cs.start_minute %s LIMIT %d OFFSET %d`,
		scheduleDetailColumns, scheduleDetailJoins+clause, order, size, offset)

	var schedules []models.ClassScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", scheduleDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID returns a schedule by its ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	const query = `SELECT id, course_id, semester_id, faculty_id, classroom_id, days_of_week, start_minute, end_minute, created_at, updated_at
        FROM class_schedules WHERE id = $1`
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindDetailByID returns a schedule with course and semester context.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE cs.id = $1`, scheduleDetailColumns, scheduleDetailJoins)
	var detail models.ClassScheduleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindSharingResources returns same-semester schedules that share the given
// faculty or classroom resource key. Callers apply day/time overlap checks.
func (r *ScheduleRepository) FindSharingResources(ctx context.Context, semesterID string, facultyID, classroomID *string) ([]models.ClassScheduleDetail, error) {
	conditions := []string{}
	args := []interface{}{semesterID}
	if facultyID != nil {
		conditions = append(conditions, fmt.Sprintf("cs.faculty_id = $%d", len(args)+1))
		args = append(args, *facultyID)
	}
	if classroomID != nil {
		conditions = append(conditions, fmt.Sprintf("cs.classroom_id = $%d", len(args)+1))
		args = append(args, *classroomID)
	}
	if len(conditions) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE cs.semester_id = $1 AND (%s)`,
		scheduleDetailColumns, scheduleDetailJoins, strings.Join(conditions, " OR "))

	var schedules []models.ClassScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("find schedules sharing resources: %w", err)
	}
	return schedules, nil
}

// ListByIDs returns schedule details for the given IDs.
func (r *ScheduleRepository) ListByIDs(ctx context.Context, ids []string) ([]models.ClassScheduleDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s %s WHERE cs.id = ANY($1)`, scheduleDetailColumns, scheduleDetailJoins)
	var schedules []models.ClassScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list schedules by ids: %w", err)
	}
	return schedules, nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO class_schedules (id, course_id, semester_id, faculty_id, classroom_id, days_of_week, start_minute, end_minute, created_at, updated_at)
        VALUES (:id, :course_id, :semester_id, :faculty_id, :classroom_id, :days_of_week, :start_minute, :end_minute, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update replaces a schedule's slot definition.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET course_id = :course_id, semester_id = :semester_id, faculty_id = :faculty_id,
        classroom_id = :classroom_id, days_of_week = :days_of_week, start_minute = :start_minute, end_minute = :end_minute,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule record.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM class_schedules WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
