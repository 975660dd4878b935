package domain

import "time"

// ActorType indicates who performed an audited action.
type ActorType string

const (
	ActorTypeUser     ActorType = "USER"
	ActorTypeAgent    ActorType = "AGENT"
	ActorTypeSystem   ActorType = "SYSTEM"
	ActorTypeOperator ActorType = "OPERATOR"
)

// AuditAction captures what a log entry records.
type AuditAction string

const (
	AuditActionTicketResolved          AuditAction = "TICKET_RESOLVED"
	AuditActionTicketEscalated         AuditAction = "TICKET_ESCALATED"
	AuditActionRateLimitRejected       AuditAction = "RATE_LIMIT_REJECTED"
	AuditActionValidationRejected      AuditAction = "VALIDATION_REJECTED"
	AuditActionFeedbackStatusCorrected AuditAction = "FEEDBACK_STATUS_CORRECTED"
)

// ResourceTypeTicket is the resource type for pipeline audit entries.
const ResourceTypeTicket = "ticket"

// AuditLogEntry is an immutable audit trail entry.
type AuditLogEntry struct {
	ID           string
	ActorType    ActorType
	Actor        string
	UserID       *string
	Action       AuditAction
	ResourceType string
	ResourceID   string
	OldValue     map[string]any
	NewValue     map[string]any
	CreatedAt    time.Time
}
