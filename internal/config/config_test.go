package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/urbispulse/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SUBMISSION_CATEGORIES", "")
	t.Setenv("LEDGER_BACKEND", "")
	t.Setenv("SUBMISSION_COMMIT_DELAY_MS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "urbispulse", cfg.App.Name)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.False(t, cfg.Redis.UseRedisLedger())
	assert.Equal(t, domain.DefaultCategories, cfg.Submission.Categories)
	assert.Equal(t, 2*time.Second, cfg.Submission.CommitDelay())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("SUBMISSION_CATEGORIES", "roads:Roads, lights:Street Lights ,misc")
	t.Setenv("SUBMISSION_COMMIT_DELAY_MS", "0")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Redis.UseRedisLedger(), "memory backend wins even with an address")
	assert.Equal(t, []domain.Category{
		{ID: "roads", Name: "Roads"},
		{ID: "lights", Name: "Street Lights"},
		{ID: "misc", Name: ""},
	}, cfg.Submission.Categories)
	assert.Zero(t, cfg.Submission.CommitDelay())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"redis db", "REDIS_DB", "first"},
		{"ledger backend", "LEDGER_BACKEND", "sqlite"},
		{"category without id", "SUBMISSION_CATEGORIES", ":Nameless"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRedisLedgerSelection(t *testing.T) {
	assert.True(t, RedisConfig{Addr: "localhost:6379", LedgerBackend: "redis"}.UseRedisLedger())
	assert.False(t, RedisConfig{LedgerBackend: "redis"}.UseRedisLedger())
}
