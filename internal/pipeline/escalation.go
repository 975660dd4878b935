package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/repository"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// Verdict is the terminal decision for a ticket.
type Verdict struct {
	RetrievalResult
	Status   domain.TicketStatus
	Message  string
	Feedback *domain.FeedbackRecord
	Audit    *domain.AuditLogEntry
}

// Escalation decides between auto-resolution and human hand-off and records
// the outcome. The feedback record and its audit entry commit together.
type Escalation struct {
	store     repository.Store
	threshold float64
	logger    *zap.Logger
}

func NewEscalation(store repository.Store, cfg config.PipelineConfig, logger *zap.Logger) *Escalation {
	return &Escalation{store: store, threshold: cfg.ResolveThreshold, logger: logger}
}

// StatusFor is the decision rule: resolved iff confidence meets the threshold.
func StatusFor(confidence, threshold float64) domain.TicketStatus {
	if confidence >= threshold {
		return domain.TicketStatusResolved
	}
	return domain.TicketStatusEscalated
}

func (e *Escalation) Decide(ctx context.Context, in RetrievalResult) (Verdict, error) {
	status := StatusFor(in.Confidence, e.threshold)
	ticket := in.Ticket
	ticket.Status = status

	v := Verdict{RetrievalResult: in, Status: status}
	v.Ticket = ticket
	v.Message = decisionMessage(status, in.Confidence, in.Reasoning, ticket.ID)

	var customerID *string
	if ticket.Requester != nil {
		id := ticket.Requester.ID
		customerID = &id
	}

	feedback := &domain.FeedbackRecord{
		TicketID:            ticket.ID,
		CustomerID:          customerID,
		Category:            ticket.Intent.Category,
		Intent:              ticket.Intent.Specific,
		Confidence:          in.Confidence,
		DiagnosticReasoning: in.Reasoning,
		Status:              status,
	}

	newValue := map[string]any{
		"status":     status,
		"confidence": in.Confidence,
		"category":   ticket.Intent.Category,
		"intent":     ticket.Intent.Specific,
		"priority":   ticket.Priority,
		"risk_score": in.Risk.Score,
	}
	if in.Match != nil {
		newValue["issue_key"] = in.Match.IssueKey
	}
	action := domain.AuditActionTicketEscalated
	if status == domain.TicketStatusResolved {
		action = domain.AuditActionTicketResolved
	}
	audit := &domain.AuditLogEntry{
		ActorType:    domain.ActorTypeAgent,
		Actor:        "escalation",
		UserID:       customerID,
		Action:       action,
		ResourceType: domain.ResourceTypeTicket,
		ResourceID:   ticket.ID,
		NewValue:     newValue,
	}

	// Once started, the write completes even if the caller goes away.
	txCtx := context.WithoutCancel(ctx)
	err := e.store.WithinTx(txCtx, func(tx repository.TxRepos) error {
		if err := tx.Feedback.Create(txCtx, feedback); err != nil {
			return fmt.Errorf("create feedback: %w", err)
		}
		if err := tx.Audit.Create(txCtx, audit); err != nil {
			return fmt.Errorf("create audit: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("failed to record ticket outcome",
			zap.String("ticket_id", ticket.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return Verdict{}, apperrors.NewPersistenceFailure(err)
	}

	v.Feedback = feedback
	v.Audit = audit
	return v, nil
}

func decisionMessage(status domain.TicketStatus, confidence float64, reasoning, ticketID string) string {
	if status == domain.TicketStatusResolved {
		return fmt.Sprintf("Your issue was resolved automatically (confidence %.2f). Diagnostic: %s", confidence, reasoning)
	}
	return fmt.Sprintf("We could not resolve this automatically due to low confidence (%.2f). "+
		"A support specialist will investigate manually and follow up on ticket %s.", confidence, ticketID)
}
