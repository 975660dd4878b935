package pipeline

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/classifier"
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/observability"
)

// NoKnownIssueMatch is the reasoning recorded when nothing else explains a ticket.
const NoKnownIssueMatch = "No known issue match found. Manual investigation required."

// IssueMatcher finds the known issue for a fingerprint; nil means no match.
type IssueMatcher interface {
	Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.KnownIssue, error)
}

// RetrievalResult carries the ticket forward with its final confidence.
type RetrievalResult struct {
	TriageResult
	Confidence float64
	Reasoning  string
	Match      *domain.KnownIssue
}

// Retrieval matches a classified ticket against the knowledge base. It only
// ever raises confidence.
type Retrieval struct {
	issues    IssueMatcher
	diagnoser classifier.Diagnoser
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewRetrieval builds the stage. diagnoser may be nil.
func NewRetrieval(issues IssueMatcher, diagnoser classifier.Diagnoser, metrics *observability.Metrics, logger *zap.Logger) *Retrieval {
	return &Retrieval{issues: issues, diagnoser: diagnoser, metrics: metrics, logger: logger}
}

func (r *Retrieval) Retrieve(ctx context.Context, in TriageResult) (RetrievalResult, error) {
	ticket := in.Ticket
	fp := domain.Fingerprint{Category: ticket.Intent.Category, Intent: ticket.Intent.Specific}
	if ticket.Requester != nil {
		id := ticket.Requester.ID
		fp.CustomerID = &id
	}

	issue, err := r.issues.Lookup(ctx, fp)
	if err != nil {
		r.metrics.RecordKnowledgeLookup("error")
		r.logger.Warn("known issue lookup failed; treating as miss",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
		issue = nil
	}

	out := RetrievalResult{TriageResult: in, Confidence: in.PartialConfidence}

	if issue != nil {
		r.metrics.RecordKnowledgeLookup("hit")
		out.Match = issue
		out.Confidence = math.Min(1, in.PartialConfidence+clamp01(issue.ConfidenceBoost))
		out.Reasoning = issue.Fix
		ticket.Status = domain.TicketStatusMatched
	} else {
		if err == nil {
			r.metrics.RecordKnowledgeLookup("miss")
		}
		out.Reasoning = r.diagnose(ctx, ticket)
	}

	ticket.Confidence = out.Confidence
	ticket.DiagnosticReasoning = out.Reasoning
	out.Ticket = ticket
	return out, nil
}

func (r *Retrieval) diagnose(ctx context.Context, ticket domain.Ticket) string {
	if r.diagnoser == nil {
		return NoKnownIssueMatch
	}
	reasoning, err := r.diagnoser.Diagnose(ctx, classifier.DiagnosisContext{
		TicketText: ticket.Text,
		Category:   ticket.Intent.Category,
		Intent:     ticket.Intent.Specific,
	})
	if err != nil || reasoning == "" {
		return NoKnownIssueMatch
	}
	return reasoning
}
