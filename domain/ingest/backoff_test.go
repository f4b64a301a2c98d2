package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Minute},
		{1, 5 * time.Minute},
		{2, 15 * time.Minute},
		{3, 30 * time.Minute},
		{4, time.Hour},
		{10, time.Hour},
		{-1, time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NextBackoff(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}
