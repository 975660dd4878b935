package domain

import "time"

// FeedbackRecord captures the terminal outcome of one pipeline run.
type FeedbackRecord struct {
	ID                  string
	TicketID            string
	CustomerID          *string
	Category            string
	Intent              string
	Confidence          float64
	DiagnosticReasoning string
	Status              TicketStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
