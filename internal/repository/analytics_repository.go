package repository

import (
	"context"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/persistence"
)

// AnalyticsRepository computes read-only aggregates for the metrics endpoint.
type AnalyticsRepository interface {
	Snapshot(ctx context.Context) (*domain.AnalyticsSnapshot, error)
}

type analyticsRepository struct {
	db persistence.DBTX
}

// NewAnalyticsRepository builds repository.
func NewAnalyticsRepository(db persistence.DBTX) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Snapshot(ctx context.Context) (*domain.AnalyticsSnapshot, error) {
	snap := &domain.AnalyticsSnapshot{
		TierDistribution: map[string]int64{},
		Metrics:          map[string]float64{},
	}

	const totals = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE active),
               COALESCE((SELECT SUM(amount) FROM invoices WHERE paid), 0)::float8
        FROM users`
	if err := r.db.QueryRow(ctx, totals).Scan(&snap.TotalUsers, &snap.ActiveUsers, &snap.MonthlyRevenue); err != nil {
		return nil, err
	}
	if snap.TotalUsers > 0 {
		snap.CancellationRate = float64(snap.TotalUsers-snap.ActiveUsers) / float64(snap.TotalUsers)
	}

	if err := r.collect(ctx, `SELECT subscription_tier, COUNT(*) FROM users GROUP BY subscription_tier`, func(scan func(...any) error) error {
		var (
			tier  string
			count int64
		)
		if err := scan(&tier, &count); err != nil {
			return err
		}
		snap.TierDistribution[string(domain.ParseTier(tier))] += count
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.collect(ctx, `SELECT metric, value FROM analytics ORDER BY metric`, func(scan func(...any) error) error {
		var (
			metric string
			value  float64
		)
		if err := scan(&metric, &value); err != nil {
			return err
		}
		snap.Metrics[metric] = value
		return nil
	}); err != nil {
		return nil, err
	}

	const feedback = `
        SELECT status, COUNT(*), COALESCE(AVG(confidence_score), 0)
        FROM feedback_loop GROUP BY status ORDER BY status`
	if err := r.collect(ctx, feedback, func(scan func(...any) error) error {
		var row domain.FeedbackStatusCount
		if err := scan(&row.Status, &row.Count, &row.AvgConfidence); err != nil {
			return err
		}
		snap.FeedbackStats = append(snap.FeedbackStats, row)
		return nil
	}); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *analyticsRepository) collect(ctx context.Context, query string, each func(scan func(...any) error) error) error {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := each(rows.Scan); err != nil {
			return err
		}
	}
	return rows.Err()
}
