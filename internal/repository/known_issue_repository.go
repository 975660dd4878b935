package repository

import (
	"context"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/persistence"
)

// KnownIssueRepository reads the known-issue reference table.
type KnownIssueRepository interface {
	FindByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.KnownIssue, error)
}

type knownIssueRepository struct {
	db persistence.DBTX
}

// NewKnownIssueRepository builds repository.
func NewKnownIssueRepository(db persistence.DBTX) KnownIssueRepository {
	return &knownIssueRepository{db: db}
}

// FindByFingerprint returns the best row for the fingerprint. A row scoped to
// the customer wins over a global one; ties break on issue_key so the result
// is stable across calls.
func (r *knownIssueRepository) FindByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.KnownIssue, error) {
	const query = `
        SELECT id, issue_key, title, category, intent, fix, confidence_boost, customer_id, created_at, updated_at
        FROM known_issues
        WHERE category = $1 AND intent = $2
          AND (customer_id IS NULL OR customer_id::text = $3)
        ORDER BY (customer_id IS NULL) ASC, issue_key ASC
        LIMIT 1`

	customer := ""
	if fp.CustomerID != nil {
		customer = *fp.CustomerID
	}

	var issue domain.KnownIssue
	if err := r.db.QueryRow(ctx, query, fp.Category, fp.Intent, customer).Scan(
		&issue.ID,
		&issue.IssueKey,
		&issue.Title,
		&issue.Category,
		&issue.Intent,
		&issue.Fix,
		&issue.ConfidenceBoost,
		&issue.CustomerID,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &issue, nil
}
