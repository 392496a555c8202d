package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 100, cfg.Audit.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Audit.FlushInterval)
	assert.Equal(t, 5*time.Minute, cfg.StepUp.ChallengeTTL)
	assert.Equal(t, 3, cfg.StepUp.MaxAttempts)
	assert.Equal(t, int64(150_000), cfg.Workflow.OnboardingFee)
	assert.True(t, cfg.Workflow.RecoverOnStart)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("AUDIT_FLUSH_INTERVAL", "5s")
	t.Setenv("AUDIT_BATCH_SIZE", "not-a-number")
	t.Setenv("WORKFLOW_RENEWAL_FEE", "75000")
	t.Setenv("WORKFLOW_RECOVER_ON_START", "false")
	t.Setenv("REGULUS_ENV", "production")

	cfg := FromEnv()

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Audit.FlushInterval)
	assert.Equal(t, 100, cfg.Audit.BatchSize, "invalid values fall back")
	assert.Equal(t, int64(75_000), cfg.Workflow.RenewalFee)
	assert.False(t, cfg.Workflow.RecoverOnStart)
	assert.True(t, cfg.IsProduction())
}
