package repository

import (
	"context"

	"github.com/supportdesk/triage-service/internal/domain"
	"github.com/supportdesk/triage-service/internal/persistence"
)

// UserRepository defines read access to subscribers.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	db persistence.DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db persistence.DBTX) UserRepository {
	return &userRepository{db: db}
}

// GetByEmail matches case-insensitively and returns pgx.ErrNoRows when absent.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, subscription_tier, active, balance::float8, renewal_date, created_at, updated_at
        FROM users WHERE LOWER(email) = LOWER($1)`

	var (
		user domain.User
		tier string
	)
	if err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&tier,
		&user.Active,
		&user.Balance,
		&user.RenewalDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Tier = domain.ParseTier(tier)
	return &user, nil
}
