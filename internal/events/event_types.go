package events

import (
	"time"

	"github.com/supportdesk/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketResolved  EventType = "ticket_resolved"
	EventTicketEscalated EventType = "ticket_escalated"
	EventTicketRejected  EventType = "ticket_rejected"
	EventFeedbackUpdated EventType = "feedback_updated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   domain.ActorType `json:"type"`
	ID     string           `json:"id,omitempty"`
	UserID *string          `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by the pipeline and services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketDecidedPayload accompanies resolved and escalated events.
type TicketDecidedPayload struct {
	UserEmail  string                `json:"user_email,omitempty"`
	Category   string                `json:"category"`
	Intent     string                `json:"intent"`
	Priority   domain.TicketPriority `json:"priority"`
	Confidence float64               `json:"confidence"`
	Reasoning  string                `json:"reasoning"`
}

// TicketRejectedPayload accompanies rejected events.
type TicketRejectedPayload struct {
	Reason    domain.AuditAction `json:"reason"`
	Scope     string             `json:"scope,omitempty"`
	RiskScore float64            `json:"risk_score,omitempty"`
}

// FeedbackUpdatedPayload accompanies operator corrections.
type FeedbackUpdatedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}
