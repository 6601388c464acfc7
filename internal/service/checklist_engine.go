package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/GuilhermeRVaz/sisgoe-api/internal/models"
)

// NormalizeDocumentType canonicalizes a document type key: trimmed,
// lowercased, with whitespace runs collapsed to a single underscore.
func NormalizeDocumentType(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	fields := strings.Fields(strings.ToLower(trimmed))
	return strings.Join(fields, "_")
}

// MatchesDocumentType reports whether two document type keys refer to the
// same document after normalization.
func MatchesDocumentType(a, b string) bool {
	return NormalizeDocumentType(a) == NormalizeDocumentType(b)
}

// CalculateStatus derives the aggregate summary from the item list. Only
// MissingDocuments is restricted to required items; delivery and review
// buckets cover every item, so an optional document awaiting review still
// blocks completeness.
func CalculateStatus(items models.ChecklistItems) models.ChecklistStatus {
	status := models.ChecklistStatus{
		MissingDocuments:  []models.ChecklistItem{},
		PendingApproval:   []models.ChecklistItem{},
		ApprovedDocuments: []models.ChecklistItem{},
	}
	for _, item := range items {
		if item.IsRequired {
			status.TotalRequired++
			if !item.IsDelivered {
				status.MissingDocuments = append(status.MissingDocuments, item)
			}
		}
		if !item.IsDelivered {
			continue
		}
		status.TotalDelivered++
		if item.Approval == models.ApprovalApproved {
			status.TotalApproved++
			status.ApprovedDocuments = append(status.ApprovedDocuments, item)
			continue
		}
		// Rejected documents stay in the review bucket until re-delivered
		// or approved.
		status.PendingApproval = append(status.PendingApproval, item)
	}
	// An empty requirement list can never be complete.
	status.IsComplete = len(status.MissingDocuments) == 0 && len(status.PendingApproval) == 0 && status.TotalRequired > 0
	return status
}

// SanitizeItems enforces per-item invariants before persistence: normalized
// document types, a valid approval state, and no delivery metadata on
// undelivered items.
func SanitizeItems(items models.ChecklistItems) models.ChecklistItems {
	sanitized := make(models.ChecklistItems, 0, len(items))
	for _, item := range items {
		item.DocumentType = NormalizeDocumentType(item.DocumentType)
		switch item.Approval {
		case models.ApprovalApproved, models.ApprovalRejected, models.ApprovalPending:
		default:
			item.Approval = models.ApprovalPending
		}
		if !item.IsDelivered {
			item.DeliveredAt = nil
			item.Approval = models.ApprovalPending
		}
		if item.Category == "" {
			item.Category = models.CategoryOther
		}
		sanitized = append(sanitized, item)
	}
	return sanitized
}

// NewItemsFromTemplates builds an initial item list from template
// definitions. Item identifiers are positional and timestamped so repeated
// bootstraps never collide.
func NewItemsFromTemplates(templates []models.DocumentTemplate, now time.Time) models.ChecklistItems {
	items := make(models.ChecklistItems, 0, len(templates))
	for i, tpl := range templates {
		items = append(items, models.ChecklistItem{
			ID:                    fmt.Sprintf("temp_%d_%d", i, now.UnixMilli()),
			DocumentType:          NormalizeDocumentType(tpl.DocumentType),
			DocumentName:          tpl.DocumentName,
			Category:              tpl.Category,
			IsRequired:            tpl.IsRequired,
			RequiredForEnrollment: tpl.RequiredForEnrollment,
			IsDelivered:           false,
			Approval:              models.ApprovalPending,
		})
	}
	return items
}
