package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RISK_REJECT_THRESHOLD", "")
	t.Setenv("RESOLVE_THRESHOLD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Pipeline.RiskRejectThreshold)
	assert.Equal(t, 0.75, cfg.Pipeline.ResolveThreshold)
	assert.Equal(t, 5000, cfg.Pipeline.MaxInputLength)
	assert.Equal(t, 1000, cfg.RateLimit.GlobalPerMinute)
	assert.Equal(t, "keyword", cfg.Classifier.Provider)
	assert.Equal(t, 3, cfg.Classifier.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Knowledge.CacheTTL())
}

func TestLoad_OverridesThresholds(t *testing.T) {
	t.Setenv("RESOLVE_THRESHOLD", "0.8")
	t.Setenv("RATE_LIMIT_GLOBAL_ENABLED", "false")
	t.Setenv("CLASSIFIER_TIMEOUT_SECONDS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Pipeline.ResolveThreshold)
	assert.False(t, cfg.RateLimit.GlobalEnabled)
	assert.Equal(t, 4*time.Second, cfg.Classifier.Timeout())
}

func TestLoad_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("RISK_REJECT_THRESHOLD", "1.5")

	_, err := Load()

	assert.ErrorContains(t, err, "RISK_REJECT_THRESHOLD")
}

func TestGetEnvAsFloat_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_FLOAT", "not-a-number")

	assert.Equal(t, 0.25, getEnvAsFloat("SOME_FLOAT", 0.25))
}

func TestKnowledgeConfig_ZeroTTLDisablesCache(t *testing.T) {
	assert.Equal(t, time.Duration(0), KnowledgeConfig{CacheTTLSeconds: 0}.CacheTTL())
}
