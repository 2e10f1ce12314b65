package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-adp-api/internal/models"
	appErrors "github.com/noah-isme/uni-adp-api/pkg/errors"
)

type mockCourseRepo struct {
	listFn       func(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	findByIDFn   func(ctx context.Context, id string) (*models.Course, error)
	findByCodeFn func(ctx context.Context, code string) (*models.Course, error)
	createFn     func(ctx context.Context, course *models.Course) error
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	return m.listFn(ctx, filter)
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockCourseRepo) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	return m.findByCodeFn(ctx, code)
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	return m.createFn(ctx, course)
}

type mockSemesterRepo struct {
	listFn     func(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	findByIDFn func(ctx context.Context, id string) (*models.Semester, error)
}

func (m *mockSemesterRepo) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	return m.listFn(ctx, filter)
}

func (m *mockSemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	return m.findByIDFn(ctx, id)
}

func TestCreateCourse(t *testing.T) {
	var created *models.Course
	courses := &mockCourseRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Course, error) {
			return nil, sql.ErrNoRows
		},
		createFn: func(ctx context.Context, course *models.Course) error {
			created = course
			return nil
		},
	}
	svc := NewCatalogService(courses, &mockSemesterRepo{}, &mockStudentDetailReader{}, nil, nil)

	course, err := svc.CreateCourse(context.Background(), CreateCourseRequest{
		Code:         "CS101",
		Name:         "Intro to Computing",
		DepartmentID: "dept-1",
		Credits:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, created, course)
	assert.Equal(t, 3, course.Credits)
}

func TestCreateCourseDuplicateCode(t *testing.T) {
	courses := &mockCourseRepo{
		findByCodeFn: func(ctx context.Context, code string) (*models.Course, error) {
			return &models.Course{ID: "course-1", Code: code}, nil
		},
	}
	svc := NewCatalogService(courses, &mockSemesterRepo{}, &mockStudentDetailReader{}, nil, nil)

	_, err := svc.CreateCourse(context.Background(), CreateCourseRequest{
		Code:         "CS101",
		Name:         "Intro to Computing",
		DepartmentID: "dept-1",
		Credits:      3,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGetCourseNotFound(t *testing.T) {
	courses := &mockCourseRepo{
		findByIDFn: func(ctx context.Context, id string) (*models.Course, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := NewCatalogService(courses, &mockSemesterRepo{}, &mockStudentDetailReader{}, nil, nil)

	_, err := svc.GetCourse(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateCourseValidation(t *testing.T) {
	svc := NewCatalogService(&mockCourseRepo{}, &mockSemesterRepo{}, &mockStudentDetailReader{}, nil, nil)

	_, err := svc.CreateCourse(context.Background(), CreateCourseRequest{Code: "CS101"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
