package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/events"
	"github.com/supportdesk/triage-service/internal/repository"
	apperrors "github.com/supportdesk/triage-service/pkg/util/errorutil"
)

// FeedbackView is a feedback record with its audit trail, oldest first.
type FeedbackView struct {
	Record *domain.FeedbackRecord
	Audit  []domain.AuditLogEntry
}

// FeedbackService exposes stored ticket outcomes to operators and lets them
// correct a decision after the fact.
type FeedbackService struct {
	feedback   repository.FeedbackRepository
	audit      repository.AuditRepository
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// FeedbackDependencies wires repositories for FeedbackService.
type FeedbackDependencies struct {
	Feedback   repository.FeedbackRepository
	Audit      repository.AuditRepository
	Store      repository.Store
	Dispatcher events.Dispatcher
}

func NewFeedbackService(deps FeedbackDependencies, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{
		feedback:   deps.Feedback,
		audit:      deps.Audit,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Get returns the record for ticketID and every audit entry about the ticket.
func (s *FeedbackService) Get(ctx context.Context, ticketID string) (*FeedbackView, error) {
	record, err := s.feedback.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("feedback", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	trail, err := s.audit.ListByResource(ctx, domain.ResourceTypeTicket, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &FeedbackView{Record: record, Audit: trail}, nil
}

// CorrectStatus overrides the stored decision. The row is locked, updated and
// audited in one transaction. Setting the current status again is a no-op.
func (s *FeedbackService) CorrectStatus(ctx context.Context, ticketID string, status domain.TicketStatus, note string, op domain.Operator) (*domain.FeedbackRecord, error) {
	if !status.Terminal() {
		return nil, apperrors.NewValidationError("status must be Resolved or Escalated", map[string]any{"status": status})
	}

	var (
		updated   *domain.FeedbackRecord
		oldStatus domain.TicketStatus
		changed   bool
	)
	txCtx := context.WithoutCancel(ctx)
	err := s.store.WithinTx(txCtx, func(tx repository.TxRepos) error {
		record, err := tx.Feedback.LockByTicketID(txCtx, ticketID)
		if err != nil {
			return err
		}
		updated, oldStatus = record, record.Status
		if record.Status == status {
			return nil
		}
		if err := tx.Feedback.UpdateStatus(txCtx, ticketID, status); err != nil {
			return fmt.Errorf("update feedback status: %w", err)
		}
		newValue := map[string]any{"status": status}
		if note != "" {
			newValue["note"] = note
		}
		if err := tx.Audit.Create(txCtx, &domain.AuditLogEntry{
			ActorType:    domain.ActorTypeOperator,
			Actor:        op.Email,
			UserID:       record.CustomerID,
			Action:       domain.AuditActionFeedbackStatusCorrected,
			ResourceType: domain.ResourceTypeTicket,
			ResourceID:   ticketID,
			OldValue:     map[string]any{"status": record.Status},
			NewValue:     newValue,
		}); err != nil {
			return fmt.Errorf("create audit: %w", err)
		}
		record.Status = status
		changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("feedback", map[string]any{"ticket_id": ticketID})
		}
		s.logger.Error("failed to correct feedback status", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewPersistenceFailure(err)
	}

	if changed {
		s.logger.Info("feedback status corrected",
			zap.String("ticket_id", ticketID),
			zap.String("operator", op.Email),
			zap.String("old_status", string(oldStatus)),
			zap.String("new_status", string(status)),
		)
		s.publish(ctx, ticketID, op, events.FeedbackUpdatedPayload{OldStatus: oldStatus, NewStatus: status, Note: note})
	}
	return updated, nil
}

func (s *FeedbackService) publish(ctx context.Context, ticketID string, op domain.Operator, payload events.FeedbackUpdatedPayload) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(context.WithoutCancel(ctx), events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventFeedbackUpdated,
		TicketID:  ticketID,
		Actor:     events.Actor{Type: domain.ActorTypeOperator, ID: op.Email},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
