package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope(t *testing.T) {
	attr := Scope("query.repo")
	assert.Equal(t, "scope", attr.Key)
	assert.Equal(t, "query.repo", attr.Value.String())
}

func TestErrorAttr(t *testing.T) {
	err := errors.New("claim failed")
	attr := Error(err)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.Nil(t, Error(nil).Value.Any())
}

func TestNewLoggerLevels(t *testing.T) {
	t.Setenv("GO_ENV", "")

	t.Run("default is info", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		log := NewLogger()
		require.NotNil(t, log)
		assert.True(t, log.Enabled(nil, slog.LevelInfo))
		assert.False(t, log.Enabled(nil, slog.LevelDebug))
	})

	t.Run("debug enables debug", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		log := NewLogger()
		assert.True(t, log.Enabled(nil, slog.LevelDebug))
	})

	t.Run("error suppresses warn", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		log := NewLogger()
		assert.False(t, log.Enabled(nil, slog.LevelWarn))
	})
}
