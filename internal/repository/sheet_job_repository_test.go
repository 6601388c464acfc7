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

func newSheetJobRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSheetJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newSheetJobRepoMock(t)
	defer cleanup()
	repo := NewSheetJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sheet_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.SheetJob{
		Params:    models.SheetJobParams{StudentID: "student-1"},
		CreatedBy: "admin-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.SheetStatusQueued, job.Status)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow(job.ID, `{"studentId":"student-1","extras":{}}`, "QUEUED", 0, nil, "admin-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sheet_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, "student-1", fetched.Params.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newSheetJobRepoMock(t)
	defer cleanup()
	repo := NewSheetJobRepository(db)

	status := models.SheetStatusFinished
	progress := 100
	result := "/api/v1/enrollment-sheets/download/token"
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sheet_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateSheetJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetJobRepositoryUpdateNoFields(t *testing.T) {
	db, mock, cleanup := newSheetJobRepoMock(t)
	defer cleanup()
	repo := NewSheetJobRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateSheetJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSheetJobRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newSheetJobRepoMock(t)
	defer cleanup()
	repo := NewSheetJobRepository(db)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", `{"studentId":"student-1","extras":{}}`, "QUEUED", 0, nil, "admin-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sheet_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
