package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
	"github.com/GuilhermeRVaz/sisgoe-api/pkg/storage"
)

type profileReaderStub struct {
	profile *models.StudentProfile
	err     error
}

func (p profileReaderStub) GetProfile(ctx context.Context, id string) (*models.StudentProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

type fillerStub struct {
	cells   map[string]string
	payload []byte
	err     error
}

func (f *fillerStub) Fill(cells map[string]string) ([]byte, error) {
	f.cells = cells
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func testProfile() *models.StudentProfile {
	birth := time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC)
	return &models.StudentProfile{
		Student: models.Student{ID: "student-1", FullName: "Maria da Silva"},
		PersonalData: &models.PersonalData{
			Name:        "Maria da Silva",
			RG:          "12.345.678-9",
			CPF:         "123.456.789-00",
			BirthDate:   &birth,
			MotherName:  "Ana da Silva",
			Nationality: "Brasileira",
			Naturalness: "Sao Paulo",
		},
		Address: &models.Address{
			Street:       "Rua das Flores",
			Number:       "123",
			Neighborhood: "Centro",
			CEP:          "12345-678",
			City:         "Sao Paulo",
			State:        "SP",
			PhoneNumber:  "(11) 3333-4444",
			CellPhone:    "(11) 98888-7777",
			Email:        "maria@example.com",
		},
	}
}

func newSheetBuilderForTest(t *testing.T, profile *models.StudentProfile) (*SheetBuilder, *fillerStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	filler := &fillerStub{payload: []byte("xlsx-bytes")}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	builder := NewSheetBuilder(profileReaderStub{profile: profile}, filler, store, signer, SheetBuilderConfig{
		APIPrefix: "/api/v1",
		ResultTTL: time.Hour,
	}, zap.NewNop())
	return builder, filler
}

func TestSheetBuilderRenderMapsProfileCells(t *testing.T) {
	builder, filler := newSheetBuilderForTest(t, testProfile())

	payload, filename, err := builder.Render(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx-bytes"), payload)
	assert.True(t, strings.HasPrefix(filename, "requerimento_matricula_maria_da_silva_"))
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	assert.Equal(t, "Maria da Silva", filler.cells["C6"])
	assert.Equal(t, "12.345.678-9", filler.cells["C7"])
	assert.Equal(t, "123.456.789-00", filler.cells["I7"])
	assert.Equal(t, "15/03/1990", filler.cells["C9"])
	assert.Equal(t, "Ana da Silva", filler.cells["I9"])
	assert.Equal(t, "Brasileira", filler.cells["C10"])
	assert.Equal(t, "Sao Paulo", filler.cells["I10"])
	assert.Equal(t, "Rua das Flores, 123", filler.cells["C19"])
	assert.Equal(t, "Centro", filler.cells["C20"])
	assert.Equal(t, "12345-678", filler.cells["C21"])
	assert.Equal(t, "Sao Paulo", filler.cells["I21"])
	assert.Equal(t, "SP", filler.cells["O21"])
	assert.Equal(t, "(11) 3333-4444", filler.cells["C22"])
	assert.Equal(t, "(11) 98888-7777", filler.cells["I22"])
	assert.Equal(t, "maria@example.com", filler.cells["C23"])
}

func TestSheetBuilderRenderPartialProfile(t *testing.T) {
	profile := testProfile()
	profile.Address = nil
	builder, filler := newSheetBuilderForTest(t, profile)

	_, _, err := builder.Render(context.Background(), "student-1")
	require.NoError(t, err)
	assert.NotContains(t, filler.cells, "C19")
	assert.Equal(t, "Maria da Silva", filler.cells["C6"])
}

func TestSheetBuilderRenderPropagatesFillError(t *testing.T) {
	builder, filler := newSheetBuilderForTest(t, testProfile())
	filler.err = errors.New("template missing")

	_, _, err := builder.Render(context.Background(), "student-1")
	require.Error(t, err)
}

func TestSheetBuilderGenerateStoresAndSigns(t *testing.T) {
	builder, _ := newSheetBuilderForTest(t, testProfile())

	job := &models.SheetJob{ID: "job-1", Params: models.SheetJobParams{StudentID: "student-1"}}
	result, err := builder.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/enrollment-sheets/download/"))
	assert.True(t, result.ExpiresAt.After(time.Now()))

	jobID, relPath, _, err := builder.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := builder.Open(relPath)
	require.NoError(t, err)
	file.Close()
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "maria_da_silva", sanitizeFilename("maria da silva"))
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.NotContains(t, sanitizeFilename("a/b\\c:d"), "/")
}
