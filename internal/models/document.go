package models

import "time"

// Document extraction processing states.
const (
	ExtractionStatusPending   = "pending"
	ExtractionStatusProcessed = "processed"
	ExtractionStatusFailed    = "failed"
)

// DocumentExtraction is a file uploaded during enrollment, keyed by the
// enrollment rather than the student record.
type DocumentExtraction struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	DocumentType string    `db:"document_type" json:"document_type"`
	Status       string    `db:"status" json:"status"`
	StoragePath  string    `db:"storage_path" json:"storage_path"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// DocumentDownload pairs an extraction with a short-lived signed URL.
type DocumentDownload struct {
	Document    DocumentExtraction `json:"document"`
	DownloadURL string             `json:"download_url"`
	ExpiresAt   time.Time          `json:"expires_at"`
}
