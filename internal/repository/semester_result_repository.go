package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

// SemesterResultRepository handles persistence of derived semester results.
type SemesterResultRepository struct {
	db *sqlx.DB
}

// NewSemesterResultRepository constructs the repository.
func NewSemesterResultRepository(db *sqlx.DB) *SemesterResultRepository {
	return &SemesterResultRepository{db: db}
}

// Upsert writes the derived result for one (student, semester) pair.
func (r *SemesterResultRepository) Upsert(ctx context.Context, result *models.SemesterResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.ComputedAt = time.Now().UTC()
	const query = `INSERT INTO semester_results (id, student_id, semester_id, gpa, total_credits, computed_at)
        VALUES (:id, :student_id, :semester_id, :gpa, :total_credits, :computed_at)
        ON CONFLICT (student_id, semester_id) DO UPDATE SET
            gpa = EXCLUDED.gpa,
            total_credits = EXCLUDED.total_credits,
            computed_at = EXCLUDED.computed_at`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("upsert semester result: %w", err)
	}
	return nil
}

// ListByStudent returns the student's semester results with semester
// context, most recent semester first.
func (r *SemesterResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SemesterResultDetail, error) {
	const query = `SELECT sr.id, sr.student_id, sr.semester_id, sr.gpa, sr.total_credits, sr.computed_at,
        s.name AS semester_name, s.start_date AS semester_start_date
        FROM semester_results sr
        JOIN semesters s ON s.id = sr.semester_id
        WHERE sr.student_id = $1
        ORDER BY s.start_date DESC`
	var results []models.SemesterResultDetail
	if err := r.db.SelectContext(ctx, &results, query, studentID); err != nil {
		return nil, fmt.Errorf("list semester results: %w", err)
	}
	return results, nil
}
