package storage

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedex/sitedex/internal/config"
)

func TestContentKey(t *testing.T) {
	assert.Equal(t, "sha256/abc123", ContentKey("abc123"))
}

func TestDisabledService(t *testing.T) {
	cfg := &config.Config{}
	svc, err := NewService(cfg, slog.Default())
	require.NoError(t, err)
	assert.False(t, svc.Enabled())

	ctx := context.Background()

	err = svc.Upload(ctx, "hash", strings.NewReader("data"), 4, UploadOptions{})
	assert.ErrorContains(t, err, "not enabled")

	_, err = svc.Download(ctx, "hash")
	assert.ErrorContains(t, err, "not enabled")

	err = svc.Delete(ctx, "hash")
	assert.ErrorContains(t, err, "not enabled")

	_, err = svc.Exists(ctx, "hash")
	assert.ErrorContains(t, err, "not enabled")
}
