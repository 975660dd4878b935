package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/persistence"
)

// FeedbackRepository persists pipeline outcomes.
type FeedbackRepository interface {
	Create(ctx context.Context, record *domain.FeedbackRecord) error
	GetByTicketID(ctx context.Context, ticketID string) (*domain.FeedbackRecord, error)
	LockByTicketID(ctx context.Context, ticketID string) (*domain.FeedbackRecord, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
}

type feedbackRepository struct {
	db persistence.DBTX
}

// NewFeedbackRepository builds repository.
func NewFeedbackRepository(db persistence.DBTX) FeedbackRepository {
	return &feedbackRepository{db: db}
}

const feedbackColumns = `id, ticket_id, customer_id, category, intent, confidence_score, diagnostic_reasoning, status, created_at, updated_at`

func (r *feedbackRepository) Create(ctx context.Context, record *domain.FeedbackRecord) error {
	const query = `
        INSERT INTO feedback_loop (ticket_id, customer_id, category, intent, confidence_score, diagnostic_reasoning, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		record.TicketID,
		record.CustomerID,
		record.Category,
		record.Intent,
		record.Confidence,
		record.DiagnosticReasoning,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt)
}

func (r *feedbackRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.FeedbackRecord, error) {
	return r.get(ctx, `SELECT `+feedbackColumns+` FROM feedback_loop WHERE ticket_id=$1`, ticketID)
}

// LockByTicketID reads the record with a row lock; only meaningful inside a transaction.
func (r *feedbackRepository) LockByTicketID(ctx context.Context, ticketID string) (*domain.FeedbackRecord, error) {
	return r.get(ctx, `SELECT `+feedbackColumns+` FROM feedback_loop WHERE ticket_id=$1 FOR UPDATE`, ticketID)
}

func (r *feedbackRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	const query = `UPDATE feedback_loop SET status=$1 WHERE ticket_id=$2`
	cmd, err := r.db.Exec(ctx, query, status, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *feedbackRepository) get(ctx context.Context, query, ticketID string) (*domain.FeedbackRecord, error) {
	var record domain.FeedbackRecord
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&record.ID,
		&record.TicketID,
		&record.CustomerID,
		&record.Category,
		&record.Intent,
		&record.Confidence,
		&record.DiagnosticReasoning,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
