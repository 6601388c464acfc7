package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "enrollment_id", "full_name", "email", "active", "created_at", "updated_at"}).
		AddRow("s1", nil, "Maria da Silva", "maria@example.com", true, time.Now(), time.Now())
}

func TestStudentRepositoryListDefaults(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, enrollment_id, full_name, email, active, created_at, updated_at FROM students WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	active := true
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE 1=1 AND active = $1 AND (LOWER(full_name) LIKE $2 OR LOWER(email) LIKE $2) ORDER BY full_name ASC LIMIT 10 OFFSET 10")).
		WithArgs(true, "%maria%").
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(true, "%maria%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Search:    "Maria",
		Active:    &active,
		Page:      2,
		PageSize:  10,
		SortBy:    "full_name",
		SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, 11, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WillReturnRows(studentRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.StudentFilter{SortBy: "password; DROP TABLE students"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1 LIMIT 1")).
		WithArgs("s1").
		WillReturnRows(studentRows())

	student, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, "Maria da Silva", student.FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindPersonalDataAbsent(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM personal_data WHERE student_id = $1 LIMIT 1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	data, err := repo.FindPersonalData(context.Background(), "s1")
	require.NoError(t, err)
	require.Nil(t, data)
	require.NoError(t, mock.ExpectationsWereMet())
}
