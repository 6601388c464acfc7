package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/repository"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/jobs"
)

type sheetJobRepoStub struct {
	jobs map[string]*models.SheetJob
}

func newSheetJobRepoStub() *sheetJobRepoStub {
	return &sheetJobRepoStub{jobs: map[string]*models.SheetJob{}}
}

func (r *sheetJobRepoStub) Create(ctx context.Context, job *models.SheetJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *sheetJobRepoStub) GetByID(ctx context.Context, id string) (*models.SheetJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *sheetJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateSheetJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *sheetJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.SheetJob, error) {
	var queued []models.SheetJob
	for _, job := range r.jobs {
		if job.Status == models.SheetStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *sheetJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.SheetJob, error) {
	return nil, nil
}

type sheetQueueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *sheetQueueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newSheetServiceForTest(t *testing.T) (*SheetService, *sheetJobRepoStub, *sheetQueueStub, *SheetBuilder) {
	t.Helper()
	repo := newSheetJobRepoStub()
	queue := &sheetQueueStub{}
	builder, _ := newSheetBuilderForTest(t, testProfile())
	svc := NewSheetService(repo, queue, builder, zap.NewNop(), SheetServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return svc, repo, queue, builder
}

func TestSheetServiceGenerateNow(t *testing.T) {
	svc, _, _, _ := newSheetServiceForTest(t)

	payload, filename, err := svc.GenerateNow(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx-bytes"), payload)
	assert.Contains(t, filename, "requerimento_matricula_")
}

func TestSheetServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newSheetServiceForTest(t)

	resp, err := svc.CreateJob(context.Background(), "student-1", "admin-1")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, models.SheetStatusQueued, resp.Status)
	require.Len(t, queue.jobs, 1)
	assert.Contains(t, repo.jobs, resp.ID)
	assert.Equal(t, "admin-1", repo.jobs[resp.ID].CreatedBy)
	assert.Equal(t, "student-1", repo.jobs[resp.ID].Params.StudentID)
}

func TestSheetServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	svc, repo, queue, _ := newSheetServiceForTest(t)
	queue.err = errors.New("queue full")

	_, err := svc.CreateJob(context.Background(), "student-1", "admin-1")
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.SheetStatusFailed, job.Status)
	}
}

func TestSheetServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newSheetServiceForTest(t)
	url := "/api/v1/enrollment-sheets/download/token"
	repo.jobs["job-1"] = &models.SheetJob{
		ID:        "job-1",
		Status:    models.SheetStatusFinished,
		Progress:  100,
		ResultURL: &url,
	}

	resp, err := svc.GetStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.SheetStatusFinished, resp.Status)
	assert.Equal(t, 100, resp.Progress)
	require.NotNil(t, resp.ResultURL)
}

func TestSheetServiceGetStatusNotFound(t *testing.T) {
	svc, _, _, _ := newSheetServiceForTest(t)
	_, err := svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
}

func TestSheetServiceResolveDownload(t *testing.T) {
	svc, repo, _, builder := newSheetServiceForTest(t)

	job := &models.SheetJob{
		ID:     "job-dl",
		Params: models.SheetJobParams{StudentID: "student-1"},
		Status: models.SheetStatusFinished,
	}
	repo.jobs[job.ID] = job

	result, err := builder.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	assert.Positive(t, download.SizeBytes)
	download.File.Close()
}

func TestSheetServiceResolveDownloadRejectsUnfinished(t *testing.T) {
	svc, repo, _, builder := newSheetServiceForTest(t)

	job := &models.SheetJob{
		ID:     "job-wip",
		Params: models.SheetJobParams{StudentID: "student-1"},
		Status: models.SheetStatusProcessing,
	}
	repo.jobs[job.ID] = job

	result, err := builder.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	_, err = svc.ResolveDownload(context.Background(), result.Token)
	require.Error(t, err)
}

func TestSheetServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newSheetServiceForTest(t)
	repo.jobs["job-1"] = &models.SheetJob{ID: "job-1", Status: models.SheetStatusQueued}
	repo.jobs["job-2"] = &models.SheetJob{ID: "job-2", Status: models.SheetStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "job-1", queue.jobs[0].ID)
}

type sheetGeneratorStub struct {
	result *SheetResult
	err    error
}

func (g sheetGeneratorStub) Generate(ctx context.Context, job *models.SheetJob) (*SheetResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func TestSheetWorkerHandleSuccess(t *testing.T) {
	repo := newSheetJobRepoStub()
	repo.jobs["job-1"] = &models.SheetJob{
		ID:     "job-1",
		Params: models.SheetJobParams{StudentID: "student-1"},
		Status: models.SheetStatusQueued,
	}
	generator := sheetGeneratorStub{result: &SheetResult{URL: "/api/v1/enrollment-sheets/download/token"}}
	worker := NewSheetWorker(repo, generator, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, models.SheetStatusFinished, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ResultURL)
}

func TestSheetWorkerHandleRequeuesBeforeMaxRetries(t *testing.T) {
	repo := newSheetJobRepoStub()
	repo.jobs["job-1"] = &models.SheetJob{ID: "job-1", Status: models.SheetStatusQueued}
	worker := NewSheetWorker(repo, sheetGeneratorStub{err: errors.New("boom")}, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.SheetStatusQueued, repo.jobs["job-1"].Status)
}

func TestSheetWorkerHandleFailsAfterMaxRetries(t *testing.T) {
	repo := newSheetJobRepoStub()
	repo.jobs["job-1"] = &models.SheetJob{ID: "job-1", Status: models.SheetStatusQueued}
	worker := NewSheetWorker(repo, sheetGeneratorStub{err: errors.New("boom")}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.SheetStatusFailed, repo.jobs["job-1"].Status)
	require.NotNil(t, repo.jobs["job-1"].ErrorMessage)
}
