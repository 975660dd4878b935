package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supportdesk/triage-service/internal/persistence"
)

// TxRepos exposes the repositories that take part in a unit of work. Every
// repository in the set shares one transaction.
type TxRepos struct {
	Feedback FeedbackRepository
	Audit    AuditRepository
}

// Store runs a unit of work atomically.
type Store interface {
	WithinTx(ctx context.Context, fn func(TxRepos) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(TxRepos) error) error {
	return persistence.WithTx(ctx, s.pool, func(tx persistence.DBTX) error {
		return fn(TxRepos{
			Feedback: NewFeedbackRepository(tx),
			Audit:    NewAuditRepository(tx),
		})
	})
}
