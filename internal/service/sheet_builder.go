package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/storage"
)

type profileReader interface {
	GetProfile(ctx context.Context, id string) (*models.StudentProfile, error)
}

type workbookFiller interface {
	Fill(cells map[string]string) ([]byte, error)
}

type sheetStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// SheetBuilderConfig tunes sheet generation.
type SheetBuilderConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// SheetResult captures successful generation metadata.
type SheetResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// SheetBuilder fills the enrollment request workbook from a student profile
// and persists the rendered file.
type SheetBuilder struct {
	profiles profileReader
	filler   workbookFiller
	storage  sheetStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      SheetBuilderConfig
}

// NewSheetBuilder constructs a SheetBuilder.
func NewSheetBuilder(profiles profileReader, filler workbookFiller, store sheetStorage, signer *storage.SignedURLSigner, cfg SheetBuilderConfig, logger *zap.Logger) *SheetBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &SheetBuilder{
		profiles: profiles,
		filler:   filler,
		storage:  store,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Render fills the workbook template for a student and returns the bytes
// together with a download filename.
func (b *SheetBuilder) Render(ctx context.Context, studentID string) ([]byte, string, error) {
	profile, err := b.profiles.GetProfile(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	payload, err := b.filler.Fill(profileCells(profile))
	if err != nil {
		return nil, "", fmt.Errorf("fill enrollment sheet: %w", err)
	}

	return payload, b.buildFilename(profile), nil
}

// Generate renders a job's sheet, stores it and returns signed metadata.
func (b *SheetBuilder) Generate(ctx context.Context, job *models.SheetJob) (*SheetResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	payload, filename, err := b.Render(ctx, job.Params.StudentID)
	if err != nil {
		return nil, err
	}

	relPath, err := b.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := b.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(b.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	url := fmt.Sprintf("%s/enrollment-sheets/download/%s", prefix, token)

	return &SheetResult{
		RelativePath: relPath,
		Token:        token,
		URL:          url,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (b *SheetBuilder) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return b.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (b *SheetBuilder) Open(relPath string) (*os.File, error) {
	return b.storage.Open(relPath)
}

// Delete removes a stored sheet file.
func (b *SheetBuilder) Delete(relPath string) error {
	return b.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to the configured ResultTTL).
func (b *SheetBuilder) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = b.cfg.ResultTTL
	}
	return b.storage.CleanupOlderThan(ttl)
}

func (b *SheetBuilder) buildFilename(profile *models.StudentProfile) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	name := sanitizeFilename(strings.ToLower(profile.Student.FullName))
	if name == "" || name == "na" {
		name = sanitizeFilename(profile.Student.ID)
	}
	return fmt.Sprintf("requerimento_matricula_%s_%s.xlsx", name, timestamp)
}

// profileCells maps profile fields onto the fixed cells of the enrollment
// request template (worksheet Plan1). Empty values are skipped by the filler.
func profileCells(profile *models.StudentProfile) map[string]string {
	cells := map[string]string{}

	if p := profile.PersonalData; p != nil {
		cells["C6"] = p.Name
		cells["C7"] = p.RG
		cells["I7"] = p.CPF
		if p.BirthDate != nil {
			cells["C9"] = p.BirthDate.Format("02/01/2006")
		}
		cells["I9"] = p.MotherName
		cells["C10"] = p.Nationality
		cells["I10"] = p.Naturalness
	}

	if a := profile.Address; a != nil {
		street := a.Street
		if a.Number != "" {
			street = fmt.Sprintf("%s, %s", a.Street, a.Number)
		}
		cells["C19"] = street
		cells["C20"] = a.Neighborhood
		cells["C21"] = a.CEP
		cells["I21"] = a.City
		cells["O21"] = a.State
		cells["C22"] = a.PhoneNumber
		cells["I22"] = a.CellPhone
		cells["C23"] = a.Email
	}

	return cells
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
