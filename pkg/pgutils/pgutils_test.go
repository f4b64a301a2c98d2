package pgutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"bare code", errors.New("ERROR: duplicate key value violates unique constraint (23505)"), true},
		{"sqlstate prefix", errors.New("pq: duplicate key SQLSTATE 23505"), true},
		{"other code", errors.New("SQLSTATE 23503"), false},
		{"unrelated", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("could not obtain lock: SQLSTATE %s", CodeLockNotAvailable)))
	assert.True(t, IsRetryable(fmt.Errorf("deadlock detected: SQLSTATE %s", CodeDeadlockDetected)))
	assert.False(t, IsRetryable(errors.New("SQLSTATE 23505")))
	assert.False(t, IsRetryable(nil))
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeLike(tt.in))
	}

	assert.Equal(t, `%KGR\%456%`, Substring("KGR%456"))
}
