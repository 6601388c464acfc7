package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

type studentRepoStub struct {
	students map[string]*models.Student
	personal map[string]*models.PersonalData
	address  map[string]*models.Address
	school   map[string]*models.Schooling
	listed   []models.Student
	total    int
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{
		students: map[string]*models.Student{},
		personal: map[string]*models.PersonalData{},
		address:  map[string]*models.Address{},
		school:   map[string]*models.Schooling{},
	}
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return r.listed, r.total, nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (r *studentRepoStub) FindPersonalData(ctx context.Context, studentID string) (*models.PersonalData, error) {
	return r.personal[studentID], nil
}

func (r *studentRepoStub) FindAddress(ctx context.Context, studentID string) (*models.Address, error) {
	return r.address[studentID], nil
}

func (r *studentRepoStub) FindSchooling(ctx context.Context, studentID string) (*models.Schooling, error) {
	return r.school[studentID], nil
}

func TestStudentServiceListPagination(t *testing.T) {
	repo := newStudentRepoStub()
	repo.listed = []models.Student{{ID: "s1"}, {ID: "s2"}}
	repo.total = 42
	svc := NewStudentService(repo, zap.NewNop())

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), zap.NewNop())
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
}

func TestStudentServiceGetProfileAggregatesTabs(t *testing.T) {
	repo := newStudentRepoStub()
	repo.students["s1"] = &models.Student{ID: "s1", FullName: "Maria da Silva"}
	repo.personal["s1"] = &models.PersonalData{StudentID: "s1", Name: "Maria da Silva"}
	repo.address["s1"] = &models.Address{StudentID: "s1", City: "Sao Paulo"}
	svc := NewStudentService(repo, zap.NewNop())

	profile, err := svc.GetProfile(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Maria da Silva", profile.Student.FullName)
	require.NotNil(t, profile.PersonalData)
	require.NotNil(t, profile.Address)
	assert.Nil(t, profile.Schooling)
}
