package models

import "time"

// Checklist change types recorded in the history trail.
const (
	ChangeTypeCreated           = "created"
	ChangeTypeUpdated           = "updated"
	ChangeTypeDocumentDelivered = "document_delivered"
	ChangeTypeDocumentApproved  = "document_approved"
	ChangeTypeDocumentRejected  = "document_rejected"
	ChangeTypeBulkApproved      = "bulk_approved"
)

// ChecklistHistory is an append-only snapshot written after every mutating
// checklist operation. Previous and new items are stored as JSONB.
type ChecklistHistory struct {
	ID            string         `db:"id" json:"id"`
	ChecklistID   string         `db:"checklist_id" json:"checklist_id"`
	StudentID     string         `db:"student_id" json:"student_id"`
	ChangedBy     string         `db:"changed_by" json:"changed_by"`
	ChangeType    string         `db:"change_type" json:"change_type"`
	PreviousItems ChecklistItems `db:"previous_items" json:"previous_items"`
	NewItems      ChecklistItems `db:"new_items" json:"new_items"`
	Notes         string         `db:"notes" json:"notes"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
