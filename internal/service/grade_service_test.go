package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockGradeRepo struct {
	findByIDFn         func(ctx context.Context, id string) (*models.Grade, error)
	findByEnrollmentFn func(ctx context.Context, enrollmentID string) (*models.Grade, error)
	upsertFn           func(ctx context.Context, grade *models.Grade) error
	deleteFn           func(ctx context.Context, id string) error
}

func (m *mockGradeRepo) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockGradeRepo) FindByEnrollment(ctx context.Context, enrollmentID string) (*models.Grade, error) {
	return m.findByEnrollmentFn(ctx, enrollmentID)
}

func (m *mockGradeRepo) Upsert(ctx context.Context, grade *models.Grade) error {
	return m.upsertFn(ctx, grade)
}

func (m *mockGradeRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockEnrollmentReader struct {
	findByStudentAndCourseFn func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	updateStatusFn           func(ctx context.Context, id string, status models.EnrollmentStatus) error
}

func (m *mockEnrollmentReader) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return m.findByStudentAndCourseFn(ctx, studentID, courseID)
}

func (m *mockEnrollmentReader) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	return m.updateStatusFn(ctx, id, status)
}

type mockRecomputer struct {
	calls []string
	err   error
}

func (m *mockRecomputer) OnGradeChanged(ctx context.Context, studentID, semesterID string) error {
	m.calls = append(m.calls, studentID+"/"+semesterID)
	return m.err
}

func activeEnrollment() *models.Enrollment {
	return &models.Enrollment{
		ID:         "enr-1",
		StudentID:  "stu-1",
		CourseID:   "course-1",
		SemesterID: "sem-1",
		Status:     models.EnrollmentStatusActive,
	}
}

func gradeRequest(letter string) RecordGradeRequest {
	return RecordGradeRequest{
		StudentID: "stu-1",
		CourseID:  "course-1",
		Letter:    letter,
		GradedBy:  "fac-1",
	}
}

func TestRecordGradeCompletesEnrollment(t *testing.T) {
	var stored *models.Grade
	var completedID string
	repo := &mockGradeRepo{upsertFn: func(ctx context.Context, grade *models.Grade) error {
		stored = grade
		return nil
	}}
	enrollments := &mockEnrollmentReader{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return activeEnrollment(), nil
		},
		updateStatusFn: func(ctx context.Context, id string, status models.EnrollmentStatus) error {
			completedID = id
			assert.Equal(t, models.EnrollmentStatusCompleted, status)
			return nil
		},
	}
	recomputer := &mockRecomputer{}
	svc := NewGradeService(repo, enrollments, recomputer, nil, nil)

	grade, err := svc.RecordGrade(context.Background(), gradeRequest("a-"))
	require.NoError(t, err)
	assert.Equal(t, models.GradeAMinus, grade.Letter)
	assert.Equal(t, 3.70, grade.Points)
	assert.Equal(t, "enr-1", completedID)
	require.NotNil(t, stored)
	assert.Equal(t, "sem-1", stored.SemesterID)
	// Recompute runs synchronously before the call returns.
	assert.Equal(t, []string{"stu-1/sem-1"}, recomputer.calls)
}

func TestRecordGradeOverwriteDoesNotRecomplete(t *testing.T) {
	enrollment := activeEnrollment()
	enrollment.Status = models.EnrollmentStatusCompleted
	statusUpdated := false
	repo := &mockGradeRepo{upsertFn: func(ctx context.Context, grade *models.Grade) error { return nil }}
	enrollments := &mockEnrollmentReader{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return enrollment, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status models.EnrollmentStatus) error {
			statusUpdated = true
			return nil
		},
	}
	recomputer := &mockRecomputer{}
	svc := NewGradeService(repo, enrollments, recomputer, nil, nil)

	grade, err := svc.RecordGrade(context.Background(), gradeRequest("B+"))
	require.NoError(t, err)
	assert.Equal(t, 3.30, grade.Points)
	assert.False(t, statusUpdated)
	assert.Len(t, recomputer.calls, 1)
}

func TestRecordGradeInvalidLetter(t *testing.T) {
	svc := NewGradeService(&mockGradeRepo{}, &mockEnrollmentReader{}, &mockRecomputer{}, nil, nil)

	_, err := svc.RecordGrade(context.Background(), gradeRequest("E"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidGrade.Code, appErrors.FromError(err).Code)
}

func TestRecordGradeNotEnrolled(t *testing.T) {
	enrollments := &mockEnrollmentReader{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return nil, nil
		},
	}
	svc := NewGradeService(&mockGradeRepo{}, enrollments, &mockRecomputer{}, nil, nil)

	_, err := svc.RecordGrade(context.Background(), gradeRequest("A"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
}

func TestRecordGradeDroppedEnrollment(t *testing.T) {
	enrollment := activeEnrollment()
	enrollment.Status = models.EnrollmentStatusDropped
	enrollments := &mockEnrollmentReader{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return enrollment, nil
		},
	}
	svc := NewGradeService(&mockGradeRepo{}, enrollments, &mockRecomputer{}, nil, nil)

	_, err := svc.RecordGrade(context.Background(), gradeRequest("A"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEnrolled.Code, appErrors.FromError(err).Code)
}

func TestBulkRecordGradesSkipsAndDedupes(t *testing.T) {
	repo := &mockGradeRepo{upsertFn: func(ctx context.Context, grade *models.Grade) error { return nil }}
	enrollments := &mockEnrollmentReader{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			if studentID == "stu-missing" {
				return nil, nil
			}
			return &models.Enrollment{
				ID:         "enr-" + studentID + "-" + courseID,
				StudentID:  studentID,
				CourseID:   courseID,
				SemesterID: "sem-1",
				Status:     models.EnrollmentStatusActive,
			}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status models.EnrollmentStatus) error { return nil },
	}
	recomputer := &mockRecomputer{}
	svc := NewGradeService(repo, enrollments, recomputer, nil, nil)

	reqs := []RecordGradeRequest{
		{StudentID: "stu-1", CourseID: "course-1", Letter: "A", GradedBy: "fac-1"},
		{StudentID: "stu-1", CourseID: "course-2", Letter: "B", GradedBy: "fac-1"},
		{StudentID: "stu-2", CourseID: "course-1", Letter: "X", GradedBy: "fac-1"},
		{StudentID: "stu-missing", CourseID: "course-1", Letter: "A", GradedBy: "fac-1"},
	}
	result, err := svc.BulkRecordGrades(context.Background(), reqs)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Recorded)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "stu-2", result.Skipped[0].StudentID)
	assert.Equal(t, "stu-missing", result.Skipped[1].StudentID)
	// Two successful rows for the same student and semester collapse into
	// one recompute.
	assert.Equal(t, []string{"stu-1/sem-1"}, recomputer.calls)
}

func TestDeleteGradeRecomputes(t *testing.T) {
	deleted := false
	repo := &mockGradeRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Grade, error) {
			return &models.Grade{ID: id, StudentID: "stu-1", SemesterID: "sem-1"}, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	recomputer := &mockRecomputer{}
	svc := NewGradeService(repo, &mockEnrollmentReader{}, recomputer, nil, nil)

	err := svc.DeleteGrade(context.Background(), "grade-1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"stu-1/sem-1"}, recomputer.calls)
}

func TestDeleteGradeNotFound(t *testing.T) {
	repo := &mockGradeRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Grade, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := NewGradeService(repo, &mockEnrollmentReader{}, &mockRecomputer{}, nil, nil)

	err := svc.DeleteGrade(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// enrollmentStateStore is a stateful enrollment row shared between the
// enrollment and grade services so their interleaving can be observed.
type enrollmentStateStore struct {
	mu     sync.Mutex
	row    models.Enrollment
	writes []models.EnrollmentStatus
}

func (s *enrollmentStateStore) get() models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.row
}

func (s *enrollmentStateStore) setStatus(status models.EnrollmentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.row.Status = status
	s.writes = append(s.writes, status)
}

func TestGradeRecordingSerializesWithDrop(t *testing.T) {
	store := &enrollmentStateStore{row: models.Enrollment{
		ID:         "enr-race",
		StudentID:  "stu-race",
		CourseID:   "course-race",
		SemesterID: "sem-race",
		Status:     models.EnrollmentStatusActive,
	}}

	readTaken := make(chan struct{})
	resume := make(chan struct{})
	var once sync.Once

	gradeEnrollments := &mockEnrollmentReader{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			row := store.get()
			once.Do(func() { close(readTaken) })
			<-resume
			return &row, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status models.EnrollmentStatus) error {
			store.setStatus(status)
			return nil
		},
	}
	gradeRepo := &mockGradeRepo{upsertFn: func(ctx context.Context, grade *models.Grade) error {
		return nil
	}}
	gradeSvc := NewGradeService(gradeRepo, gradeEnrollments, &mockRecomputer{}, nil, nil)

	enrollmentRepo := &mockEnrollmentRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Enrollment, error) {
			row := store.get()
			return &row, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status models.EnrollmentStatus) error {
			store.setStatus(status)
			return nil
		},
		findDetailByIDFn: func(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
			row := store.get()
			return &models.EnrollmentDetail{Enrollment: row}, nil
		},
	}
	enrollSvc := NewEnrollmentService(enrollmentRepo, &mockScheduleReader{}, &mockStudentReader{}, nil, nil, nil)

	gradeErr := make(chan error, 1)
	go func() {
		_, err := gradeSvc.RecordGrade(context.Background(), RecordGradeRequest{
			StudentID: "stu-race",
			CourseID:  "course-race",
			Letter:    "A",
			GradedBy:  "fac-1",
		})
		gradeErr <- err
	}()

	<-readTaken
	dropErr := make(chan error, 1)
	go func() {
		_, err := enrollSvc.Drop(context.Background(), "enr-race")
		dropErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	close(resume)

	require.NoError(t, <-gradeErr)
	err := <-dropErr
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	assert.Equal(t, models.EnrollmentStatusCompleted, store.get().Status)
	assert.Equal(t, []models.EnrollmentStatus{models.EnrollmentStatusCompleted}, store.writes)
}
