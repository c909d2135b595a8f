package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_PATH", "RULES_PATH", "ALLOWED_ORIGINS", "MAX_BLOOD_HOPS", "MAX_SPOUSE_HOPS",
		"SNAPSHOT_TTL_SECONDS", "RELATION_QUEUE_SIZE", "NUM_RELATION_WORKERS", "GORM_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "family.db", cfg.DatabasePath)
	assert.Empty(t, cfg.RulesPath)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, 4, cfg.MaxBloodHops)
	assert.Equal(t, 2, cfg.MaxSpouseHops)
	assert.Zero(t, cfg.SnapshotTTL)
	assert.Equal(t, 200, cfg.RelationQueueSize)
	assert.Equal(t, 4, cfg.NumRelationWorkers)
	assert.Equal(t, "warn", cfg.GormLogLevel)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAX_BLOOD_HOPS", "6")
	t.Setenv("MAX_SPOUSE_HOPS", "0")
	t.Setenv("SNAPSHOT_TTL_SECONDS", "30")
	t.Setenv("NUM_RELATION_WORKERS", "-3")
	t.Setenv("GORM_LOG_LEVEL", "LOUD")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 6, cfg.MaxBloodHops)
	assert.Equal(t, 0, cfg.MaxSpouseHops)
	assert.Equal(t, 30*time.Second, cfg.SnapshotTTL)
	assert.Equal(t, 4, cfg.NumRelationWorkers, "invalid values fall back to the default")
	assert.Equal(t, "warn", cfg.GormLogLevel)
}
