package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
)

func TestSemesterResultRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterResultRepository(db)

	mock.ExpectExec("INSERT INTO semester_results").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.SemesterResult{StudentID: "stu-1", SemesterID: "sem-1", GPA: 3.43, TotalCredits: 7}
	require.NoError(t, repo.Upsert(context.Background(), result))
	require.NotEmpty(t, result.ID)
	require.False(t, result.ComputedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterResultRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "semester_id", "gpa", "total_credits", "computed_at", "semester_name", "semester_start_date"}).
		AddRow("res-2", "stu-1", "sem-2", 4.00, 3, time.Now(), "Spring 2025", time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)).
		AddRow("res-1", "stu-1", "sem-1", 3.43, 7, time.Now(), "Fall 2024", time.Date(2024, 8, 26, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery("SELECT .+ FROM semester_results sr").
		WithArgs("stu-1").
		WillReturnRows(rows)

	results, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Spring 2025", results[0].SemesterName)
	require.Equal(t, 3.43, results[1].GPA)
	require.NoError(t, mock.ExpectationsWereMet())
}
