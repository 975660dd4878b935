package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/config"
)

func TestNewRedis_DisabledHasNoCache(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{Enabled: false}, zap.NewNop())

	assert.False(t, r.Enabled())
	assert.Nil(t, r.Cache())
	assert.ErrorIs(t, r.Ping(context.Background()), ErrRedisDisabled)
	assert.NotPanics(t, r.Close)
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())

	assert.ErrorIs(t, err, ErrNoDSN)
}

func TestNewPostgres_MalformedDSNIsNotRetried(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz", ConnectAttempts: 5}, zap.NewNop())

	assert.Error(t, err)
}
