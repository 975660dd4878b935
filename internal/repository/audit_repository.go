package repository

import (
	"context"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/persistence"
)

// AuditRepository stores audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]domain.AuditLogEntry, error)
}

type auditRepository struct {
	db persistence.DBTX
}

// NewAuditRepository builds repository.
func NewAuditRepository(db persistence.DBTX) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	const query = `
        INSERT INTO audit_log (actor_type, actor, user_id, action, resource_type, resource_id, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.ActorType,
		entry.Actor,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]domain.AuditLogEntry, error) {
	const query = `
        SELECT id, actor_type, actor, user_id, action, resource_type, resource_id, old_value, new_value, created_at
        FROM audit_log WHERE resource_type=$1 AND resource_id=$2 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorType,
			&entry.Actor,
			&entry.UserID,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
