package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	"github.com/GuilhermeRVaz/sisgoe-api/internal/repository"
	appErrors "github.com/GuilhermeRVaz/sisgoe-api/pkg/errors"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/jobs"
)

type sheetJobStore interface {
	Create(ctx context.Context, job *models.SheetJob) error
	GetByID(ctx context.Context, id string) (*models.SheetJob, error)
	Update(ctx context.Context, id string, params repository.UpdateSheetJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.SheetJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.SheetJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type sheetGenerator interface {
	Generate(ctx context.Context, job *models.SheetJob) (*SheetResult, error)
}

// SheetJobResponse reports job submission state.
type SheetJobResponse struct {
	ID       string             `json:"id"`
	Status   models.SheetStatus `json:"status"`
	Progress int                `json:"progress"`
}

// SheetStatusResponse reports job progress and result location.
type SheetStatusResponse struct {
	ID        string             `json:"id"`
	Status    models.SheetStatus `json:"status"`
	Progress  int                `json:"progress"`
	ResultURL *string            `json:"result_url,omitempty"`
	Error     *string            `json:"error,omitempty"`
}

// SheetDownload aggregates resolved download data.
type SheetDownload struct {
	File      *os.File
	Filename  string
	SizeBytes int64
	ExpiresAt time.Time
}

// SheetServiceConfig governs queue recovery and cleanup.
type SheetServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// SheetService orchestrates enrollment sheet job lifecycle management.
type SheetService struct {
	repo    sheetJobStore
	queue   jobDispatcher
	builder *SheetBuilder
	logger  *zap.Logger
	cfg     SheetServiceConfig
}

// NewSheetService constructs the sheet service.
func NewSheetService(repo sheetJobStore, queue jobDispatcher, builder *SheetBuilder, logger *zap.Logger, cfg SheetServiceConfig) *SheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &SheetService{repo: repo, queue: queue, builder: builder, logger: logger, cfg: cfg}
}

// GenerateNow renders a sheet synchronously, bypassing the queue.
func (s *SheetService) GenerateNow(ctx context.Context, studentID string) ([]byte, string, error) {
	if studentID == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	payload, filename, err := s.builder.Render(ctx, studentID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, "", appErr
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate enrollment sheet")
	}
	return payload, filename, nil
}

// CreateJob persists a job and enqueues processing.
func (s *SheetService) CreateJob(ctx context.Context, studentID string, actorID string) (*SheetJobResponse, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	job := &models.SheetJob{
		Params:    models.SheetJobParams{StudentID: studentID},
		Status:    models.SheetStatusQueued,
		Progress:  0,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sheet job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "enrollment_sheet"}); err != nil {
		status := models.SheetStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateSheetJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sheet job")
	}
	return &SheetJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to clients.
func (s *SheetService) GetStatus(ctx context.Context, id string) (*SheetStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sheet job")
	}
	resp := &SheetStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.ResultURL != nil {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a token and opens the stored sheet file.
func (s *SheetService) ResolveDownload(ctx context.Context, token string) (*SheetDownload, error) {
	jobID, relPath, expiresAt, err := s.builder.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sheet job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.SheetStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "sheet not ready")
	}
	file, err := s.builder.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open sheet file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat sheet file")
	}
	return &SheetDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs (e.g. after process restart).
func (s *SheetService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued sheet jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "enrollment_sheet"}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired sheets periodically.
func (s *SheetService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *SheetService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		if len(expired) == 0 {
			break
		}
		for _, job := range expired {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.builder.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.builder.Delete(relPath); err != nil {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(expired) < 100 {
			break
		}
	}
	if _, err := s.builder.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// SheetWorker bridges queue jobs to the SheetBuilder.
type SheetWorker struct {
	repo       sheetJobStore
	builder    sheetGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewSheetWorker constructs a worker.
func NewSheetWorker(repo sheetJobStore, builder sheetGenerator, maxRetries int, logger *zap.Logger) *SheetWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &SheetWorker{repo: repo, builder: builder, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job.
func (w *SheetWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.SheetStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateSheetJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	result, err := w.builder.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.SheetStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateSheetJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
		} else {
			queued := models.SheetStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateSheetJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}
	finished := models.SheetStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateSheetJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}
