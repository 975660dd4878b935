package dto

import (
	"time"

	"github.com/supportdesk/triage-service/internal/domain"
)

// CorrectFeedbackRequest payload for PATCH /feedback/:ticket_id.
type CorrectFeedbackRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

// FeedbackResponse mirrors a stored ticket outcome.
type FeedbackResponse struct {
	TicketID            string              `json:"ticket_id"`
	CustomerID          *string             `json:"customer_id"`
	Category            string              `json:"category"`
	Intent              string              `json:"intent"`
	Confidence          float64             `json:"confidence"`
	DiagnosticReasoning string              `json:"diagnostic_reasoning"`
	Status              domain.TicketStatus `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// AuditEntryResponse is one audit trail row.
type AuditEntryResponse struct {
	ID        string             `json:"id"`
	ActorType domain.ActorType   `json:"actor_type"`
	Actor     string             `json:"actor"`
	Action    domain.AuditAction `json:"action"`
	OldValue  map[string]any     `json:"old_value,omitempty"`
	NewValue  map[string]any     `json:"new_value,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewFeedbackResponse(r *domain.FeedbackRecord) FeedbackResponse {
	return FeedbackResponse{
		TicketID:            r.TicketID,
		CustomerID:          r.CustomerID,
		Category:            r.Category,
		Intent:              r.Intent,
		Confidence:          r.Confidence,
		DiagnosticReasoning: r.DiagnosticReasoning,
		Status:              r.Status,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func NewAuditEntries(entries []domain.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			ActorType: e.ActorType,
			Actor:     e.Actor,
			Action:    e.Action,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
