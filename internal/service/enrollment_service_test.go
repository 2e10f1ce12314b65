package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	listFn                           func(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	findByIDFn                       func(ctx context.Context, id string) (*models.Enrollment, error)
	findDetailByIDFn                 func(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	findByStudentAndCourseFn         func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	listActiveByStudentAndSemesterFn func(ctx context.Context, studentID, semesterID string) ([]models.Enrollment, error)
	createFn                         func(ctx context.Context, enrollment *models.Enrollment) error
	updateStatusFn                   func(ctx context.Context, id string, status models.EnrollmentStatus) error
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return m.listFn(ctx, filter)
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return m.findDetailByIDFn(ctx, id)
}

func (m *mockEnrollmentRepo) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	return m.findByStudentAndCourseFn(ctx, studentID, courseID)
}

func (m *mockEnrollmentRepo) ListActiveByStudentAndSemester(ctx context.Context, studentID, semesterID string) ([]models.Enrollment, error) {
	return m.listActiveByStudentAndSemesterFn(ctx, studentID, semesterID)
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return m.createFn(ctx, enrollment)
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	return m.updateStatusFn(ctx, id, status)
}

type mockScheduleReader struct {
	findDetailByIDFn func(ctx context.Context, id string) (*models.ClassScheduleDetail, error)
	listByIDsFn      func(ctx context.Context, ids []string) ([]models.ClassScheduleDetail, error)
}

func (m *mockScheduleReader) FindDetailByID(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	return m.findDetailByIDFn(ctx, id)
}

func (m *mockScheduleReader) ListByIDs(ctx context.Context, ids []string) ([]models.ClassScheduleDetail, error) {
	return m.listByIDsFn(ctx, ids)
}

type mockStudentReader struct {
	findByIDFn func(ctx context.Context, id string) (*models.Student, error)
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return m.findByIDFn(ctx, id)
}

func activeStudentReader() *mockStudentReader {
	return &mockStudentReader{findByIDFn: func(ctx context.Context, id string) (*models.Student, error) {
		return &models.Student{ID: id, Active: true}, nil
	}}
}

func candidateSchedule() *models.ClassScheduleDetail {
	detail := existingSlot("sched-1", "fac-1", "room-1", []string{"MON", "WED"}, 600, 660)
	detail.CourseID = "course-1"
	detail.CourseCode = "CS101"
	return &detail
}

func TestEnrollCreatesActiveEnrollment(t *testing.T) {
	var created *models.Enrollment
	repo := &mockEnrollmentRepo{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return nil, nil
		},
		listActiveByStudentAndSemesterFn: func(ctx context.Context, studentID, semesterID string) ([]models.Enrollment, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, enrollment *models.Enrollment) error {
			enrollment.ID = "enr-1"
			created = enrollment
			return nil
		},
		findDetailByIDFn: func(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
			return &models.EnrollmentDetail{Enrollment: *created}, nil
		},
	}
	schedules := &mockScheduleReader{findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
		return candidateSchedule(), nil
	}}
	svc := NewEnrollmentService(repo, schedules, activeStudentReader(), nil, nil, nil)

	detail, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "sched-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
	assert.Equal(t, "course-1", created.CourseID)
	assert.Equal(t, "sem-1", created.SemesterID)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return &models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusActive}, nil
		},
	}
	schedules := &mockScheduleReader{findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
		return candidateSchedule(), nil
	}}
	svc := NewEnrollmentService(repo, schedules, activeStudentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "sched-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErrors.FromError(err).Code)
}

func TestEnrollRejectsCompletedCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return &models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusCompleted}, nil
		},
	}
	schedules := &mockScheduleReader{findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
		return candidateSchedule(), nil
	}}
	svc := NewEnrollmentService(repo, schedules, activeStudentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "sched-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyCompleted.Code, appErrors.FromError(err).Code)
}

func TestEnrollRejectsStudentTimeConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return nil, nil
		},
		listActiveByStudentAndSemesterFn: func(ctx context.Context, studentID, semesterID string) ([]models.Enrollment, error) {
			return []models.Enrollment{{ID: "enr-9", ScheduleID: "sched-9"}}, nil
		},
	}
	schedules := &mockScheduleReader{
		findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
			return candidateSchedule(), nil
		},
		listByIDsFn: func(ctx context.Context, ids []string) ([]models.ClassScheduleDetail, error) {
			return []models.ClassScheduleDetail{
				existingSlot("sched-9", "fac-2", "room-2", []string{"WED"}, 630, 690),
			}, nil
		},
	}
	svc := NewEnrollmentService(repo, schedules, activeStudentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "sched-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)

	var conflict *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, models.ConflictStudent, conflict.Kind)
}

func TestEnrollAllowsBackToBackSlots(t *testing.T) {
	repo := &mockEnrollmentRepo{
		findByStudentAndCourseFn: func(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
			return nil, nil
		},
		listActiveByStudentAndSemesterFn: func(ctx context.Context, studentID, semesterID string) ([]models.Enrollment, error) {
			return []models.Enrollment{{ID: "enr-9", ScheduleID: "sched-9"}}, nil
		},
		createFn: func(ctx context.Context, enrollment *models.Enrollment) error {
			enrollment.ID = "enr-1"
			return nil
		},
		findDetailByIDFn: func(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
			return &models.EnrollmentDetail{}, nil
		},
	}
	schedules := &mockScheduleReader{
		findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
			return candidateSchedule(), nil
		},
		listByIDsFn: func(ctx context.Context, ids []string) ([]models.ClassScheduleDetail, error) {
			// Ends exactly when the candidate starts.
			return []models.ClassScheduleDetail{
				existingSlot("sched-9", "fac-2", "room-2", []string{"MON", "WED"}, 540, 600),
			}, nil
		},
	}
	svc := NewEnrollmentService(repo, schedules, activeStudentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "sched-1"})
	assert.NoError(t, err)
}

func TestEnrollRejectsInactiveStudent(t *testing.T) {
	schedules := &mockScheduleReader{findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
		return candidateSchedule(), nil
	}}
	students := &mockStudentReader{findByIDFn: func(ctx context.Context, id string) (*models.Student, error) {
		return &models.Student{ID: id, Active: false}, nil
	}}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, schedules, students, nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "sched-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollUnknownSchedule(t *testing.T) {
	schedules := &mockScheduleReader{findDetailByIDFn: func(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
		return nil, sql.ErrNoRows
	}}
	svc := NewEnrollmentService(&mockEnrollmentRepo{}, schedules, activeStudentReader(), nil, nil, nil)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "stu-1", ScheduleID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDropTransitions(t *testing.T) {
	t.Run("active enrollment is dropped", func(t *testing.T) {
		var updatedStatus models.EnrollmentStatus
		repo := &mockEnrollmentRepo{
			findByIDFn: func(ctx context.Context, id string) (*models.Enrollment, error) {
				return &models.Enrollment{ID: id, StudentID: "stu-1", Status: models.EnrollmentStatusActive}, nil
			},
			updateStatusFn: func(ctx context.Context, id string, status models.EnrollmentStatus) error {
				updatedStatus = status
				return nil
			},
			findDetailByIDFn: func(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
				return &models.EnrollmentDetail{Enrollment: models.Enrollment{ID: id, Status: models.EnrollmentStatusDropped}}, nil
			},
		}
		svc := NewEnrollmentService(repo, &mockScheduleReader{}, activeStudentReader(), nil, nil, nil)

		detail, err := svc.Drop(context.Background(), "enr-1")
		require.NoError(t, err)
		assert.Equal(t, models.EnrollmentStatusDropped, updatedStatus)
		assert.Equal(t, models.EnrollmentStatusDropped, detail.Status)
	})

	t.Run("dropped enrollment is rejected", func(t *testing.T) {
		repo := &mockEnrollmentRepo{
			findByIDFn: func(ctx context.Context, id string) (*models.Enrollment, error) {
				return &models.Enrollment{ID: id, StudentID: "stu-1", Status: models.EnrollmentStatusDropped}, nil
			},
		}
		svc := NewEnrollmentService(repo, &mockScheduleReader{}, activeStudentReader(), nil, nil, nil)

		_, err := svc.Drop(context.Background(), "enr-1")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrAlreadyDropped.Code, appErrors.FromError(err).Code)
	})

	t.Run("completed enrollment is rejected", func(t *testing.T) {
		repo := &mockEnrollmentRepo{
			findByIDFn: func(ctx context.Context, id string) (*models.Enrollment, error) {
				return &models.Enrollment{ID: id, StudentID: "stu-1", Status: models.EnrollmentStatusCompleted}, nil
			},
		}
		svc := NewEnrollmentService(repo, &mockScheduleReader{}, activeStudentReader(), nil, nil, nil)

		_, err := svc.Drop(context.Background(), "enr-1")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	})

	t.Run("missing enrollment", func(t *testing.T) {
		repo := &mockEnrollmentRepo{
			findByIDFn: func(ctx context.Context, id string) (*models.Enrollment, error) {
				return nil, sql.ErrNoRows
			},
		}
		svc := NewEnrollmentService(repo, &mockScheduleReader{}, activeStudentReader(), nil, nil, nil)

		_, err := svc.Drop(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	})
}
