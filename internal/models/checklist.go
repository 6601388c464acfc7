package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentCategory groups checklist items by the cockpit tab they belong to.
type DocumentCategory string

const (
	CategoryPersonal  DocumentCategory = "personal"
	CategoryAddress   DocumentCategory = "address"
	CategorySchooling DocumentCategory = "schooling"
	CategoryOther     DocumentCategory = "other"
)

// ApprovalState tracks the administrative decision for a delivered document.
// It replaces the legacy optional-boolean tri-state with an explicit enumeration.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "PENDING"
	ApprovalApproved ApprovalState = "APPROVED"
	ApprovalRejected ApprovalState = "REJECTED"
)

// ChecklistItem is a single document requirement tracked for a student.
// Invariant: Approval stays PENDING while IsDelivered is false.
type ChecklistItem struct {
	ID           string           `json:"id"`
	DocumentType string           `json:"document_type"`
	DocumentName string           `json:"document_name"`
	Category     DocumentCategory `json:"category"`
	IsRequired   bool             `json:"is_required"`
	// RequiredForEnrollment is kept distinct from IsRequired; only IsRequired
	// feeds completeness. The redundancy comes from the enrollment intake flow
	// and is preserved on purpose.
	RequiredForEnrollment bool          `json:"required_for_enrollment"`
	IsDelivered           bool          `json:"is_delivered"`
	DeliveredAt           *time.Time    `json:"delivered_at,omitempty"`
	Approval              ApprovalState `json:"approval"`
	AdminNotes            string        `json:"admin_notes,omitempty"`
}

// ChecklistItems is the ordered item sequence persisted as a JSONB column.
type ChecklistItems []ChecklistItem

// Value marshals the item list to JSON for persistence.
func (items ChecklistItems) Value() (driver.Value, error) {
	if items == nil {
		items = ChecklistItems{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist items: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the item list.
func (items *ChecklistItems) Scan(value interface{}) error {
	if value == nil {
		*items = ChecklistItems{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ChecklistItems", value)
	}
	if len(data) == 0 {
		*items = ChecklistItems{}
		return nil
	}
	if err := json.Unmarshal(data, items); err != nil {
		return fmt.Errorf("unmarshal checklist items: %w", err)
	}
	return nil
}

// ChecklistStatus is the derived aggregate over a checklist's items. It is
// never hand-edited: every mutation path recomputes it before persisting.
type ChecklistStatus struct {
	TotalRequired     int             `json:"total_required"`
	TotalDelivered    int             `json:"total_delivered"`
	TotalApproved     int             `json:"total_approved"`
	IsComplete        bool            `json:"is_complete"`
	MissingDocuments  []ChecklistItem `json:"missing_documents"`
	PendingApproval   []ChecklistItem `json:"pending_approval"`
	ApprovedDocuments []ChecklistItem `json:"approved_documents"`
}

// Value marshals the status summary to JSON for persistence.
func (s ChecklistStatus) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist status: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the status summary.
func (s *ChecklistStatus) Scan(value interface{}) error {
	if value == nil {
		*s = ChecklistStatus{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ChecklistStatus", value)
	}
	if len(data) == 0 {
		*s = ChecklistStatus{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal checklist status: %w", err)
	}
	return nil
}

// StudentDocumentChecklist is the per-student document verification record.
// One checklist exists per student (unique constraint on student_id).
type StudentDocumentChecklist struct {
	ID             string          `db:"id" json:"id"`
	StudentID      string          `db:"student_id" json:"student_id"`
	EnrollmentID   *string         `db:"enrollment_id" json:"enrollment_id,omitempty"`
	Items          ChecklistItems  `db:"items" json:"items"`
	StatusSummary  ChecklistStatus `db:"status_summary" json:"status_summary"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
	LastReviewedBy *string         `db:"last_reviewed_by" json:"last_reviewed_by,omitempty"`
	LastReviewedAt *time.Time      `db:"last_reviewed_at" json:"last_reviewed_at,omitempty"`
}
