package dto

import (
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/pipeline"
)

// QueryRequest payload for POST /query.
type QueryRequest struct {
	Text      string `json:"text"`
	UserEmail string `json:"user_email" validate:"omitempty,email,max=320"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
}

// QueryResponse is the pipeline decision returned to the caller.
type QueryResponse struct {
	TicketID            string                `json:"ticket_id"`
	Status              string                `json:"status"`
	Message             string                `json:"message"`
	Confidence          float64               `json:"confidence"`
	DiagnosticReasoning string                `json:"diagnostic_reasoning"`
	ShouldEscalate      bool                  `json:"should_escalate"`
	Priority            domain.TicketPriority `json:"priority"`
	Category            string                `json:"category"`
	Intent              string                `json:"intent"`
}

func NewQueryResponse(r *pipeline.Response) QueryResponse {
	return QueryResponse{
		TicketID:            r.TicketID,
		Status:              r.Status,
		Message:             r.Message,
		Confidence:          r.Confidence,
		DiagnosticReasoning: r.DiagnosticReasoning,
		ShouldEscalate:      r.ShouldEscalate,
		Priority:            r.Priority,
		Category:            r.Category,
		Intent:              r.Intent,
	}
}
