package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sitedex/sitedex/pkg/apperror"
)

func TestIsPermanent(t *testing.T) {
	decodeErr := json.Unmarshal([]byte("{not json"), &struct{}{})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad request", apperror.NewBadRequest("malformed tag"), true},
		{"not found", apperror.NewNotFound("location", "abc"), true},
		{"depth mismatch", apperror.ErrDepthMismatch, true},
		{"wrapped bad request", fmt.Errorf("apply: %w", apperror.NewBadRequest("x")), true},
		{"internal", apperror.NewInternal("apply failed", errors.New("boom")), false},
		{"json decode", decodeErr, true},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPermanent(tt.err))
		})
	}
}
