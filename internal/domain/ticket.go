package domain

import (
	"strings"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for a ticket inside one pipeline run.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "New"
	TicketStatusClassified TicketStatus = "Classified"
	TicketStatusMatched    TicketStatus = "Matched"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusEscalated  TicketStatus = "Escalated"
)

// Terminal reports whether the status ends a pipeline run.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusEscalated
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Sentiment is a coarse tone label for the ticket text.
type Sentiment string

const (
	SentimentAngry    Sentiment = "ANGRY"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentPositive Sentiment = "POSITIVE"
)

// Intent is the two-level classification of a ticket.
type Intent struct {
	Category string
	Specific string
}

func (i Intent) String() string {
	return i.Category + "/" + i.Specific
}

// Ticket is the transient aggregate carried through one pipeline run. It is
// never stored as its own row; its terminal state lands in a FeedbackRecord.
type Ticket struct {
	ID                  string
	UserEmail           string
	SessionID           string
	Requester           *User
	Text                string
	Intent              Intent
	Priority            TicketPriority
	Sentiment           Sentiment
	Confidence          float64
	DiagnosticReasoning string
	Status              TicketStatus
}

// NewTicketID generates a short tracking id such as TKT-1A2B3C4D.
func NewTicketID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TKT-" + strings.ToUpper(raw[:8])
}
