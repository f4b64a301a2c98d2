package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 3010, cfg.ServerPort)
	assert.Equal(t, "sitedex", cfg.Database.Database)
	assert.Equal(t, 5, cfg.Queue.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Queue.StuckThreshold)
	assert.Equal(t, 7*24*time.Hour, cfg.Queue.CompletedRetention)
	assert.Equal(t, 15*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, []string{"KGR", "KG"}, cfg.Classify.CostGroupPrefixes)
	assert.Equal(t, "loc:", cfg.Classify.LocationTagPrefix)
}

func TestNewConfigOverrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6432")
	t.Setenv("AUTH_PUBLIC_EMAILS", "office@x.com,info@x.com")
	t.Setenv("CLASSIFY_COSTGROUP_PREFIXES", "DIN,KGR")
	t.Setenv("QUEUE_MAX_RETRIES", "2")
	t.Setenv("REFRESH_INTERVAL", "5m")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Queue.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Contains(t, cfg.Database.DSN(), "db.internal:6432")
	assert.Equal(t, []string{"office@x.com", "info@x.com"}, cfg.Auth.PublicEmails)
	assert.Equal(t, []string{"DIN", "KGR"}, cfg.Classify.CostGroupPrefixes)
}

func TestStorageEnabled(t *testing.T) {
	sc := StorageConfig{}
	assert.False(t, sc.Enabled())

	sc = StorageConfig{Endpoint: "http://minio:9000", AccessKey: "k", SecretKey: "s"}
	assert.True(t, sc.Enabled())
}
