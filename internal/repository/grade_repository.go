package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

const gradeColumns = `id, enrollment_id, student_id, course_id, semester_id, letter, points, score, comments, graded_by, created_at, updated_at`

// GradeRepository handles persistence of grade records.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByID returns a grade by its ID.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE id = $1`, gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// FindByEnrollment returns the single grade row for an enrollment, or nil
// when the enrollment has not been graded yet.
func (r *GradeRepository) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM grades WHERE enrollment_id = $1`, gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, enrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find grade by enrollment: %w", err)
	}
	return &grade, nil
}

// Upsert writes the single grade row for an enrollment. Re-grading
// overwrites letter, points and metadata in place.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, enrollment_id, student_id, course_id, semester_id, letter, points, score, comments, graded_by, created_at, updated_at)
        VALUES (:id, :enrollment_id, :student_id, :course_id, :semester_id, :letter, :points, :score, :comments, :graded_by, :created_at, :updated_at)
        ON CONFLICT (enrollment_id) DO UPDATE SET
            letter = EXCLUDED.letter,
            points = EXCLUDED.points,
            score = EXCLUDED.score,
            comments = EXCLUDED.comments,
            graded_by = EXCLUDED.graded_by,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// Delete removes a grade record.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grades WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}

// ListGradedForSemester returns the aggregation rows for a student and
// semester: completed enrollments joined with their grade and the live
// course credit weight.
func (r *GradeRepository) ListGradedForSemester(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error) {
	const query = `SELECT e.id AS enrollment_id, e.course_id, c.code AS course_code, c.name AS course_name, c.credits, g.letter, g.points
        FROM enrollments e
        JOIN grades g ON g.enrollment_id = e.id
        JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1 AND e.semester_id = $2 AND e.status = $3
        ORDER BY c.code ASC`
	var rows []models.GradedEnrollment
	if err := r.db.SelectContext(ctx, &rows, query, studentID, semesterID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("list graded enrollments: %w", err)
	}
	return rows, nil
}
