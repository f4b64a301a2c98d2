package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	e := New(http.StatusBadRequest, "bad_request", "Invalid request")
	assert.Equal(t, "bad_request: Invalid request", e.Error())

	inner := errors.New("boom")
	wrapped := e.WithInternal(inner)
	assert.Equal(t, "bad_request: Invalid request (boom)", wrapped.Error())
	assert.Equal(t, inner, errors.Unwrap(wrapped))
}

func TestWithersDoNotMutate(t *testing.T) {
	base := ErrNotFound

	custom := base.WithMessage("location 'x' not found")
	assert.Equal(t, "Resource not found", base.Message)
	assert.Equal(t, "location 'x' not found", custom.Message)
	assert.Equal(t, base.Code, custom.Code)

	detailed := base.WithDetails(map[string]any{"id": "42"})
	assert.Nil(t, base.Details)
	assert.Equal(t, "42", detailed.Details["id"])
}

func TestIsMatchesByCode(t *testing.T) {
	derived := ErrConflict.WithInternal(errors.New("duplicate key"))
	assert.True(t, errors.Is(derived, ErrConflict))
	assert.False(t, errors.Is(derived, ErrNotFound))
	assert.False(t, errors.Is(errors.New("conflict"), ErrConflict))
}

func TestDepthMismatchIsValidation(t *testing.T) {
	// Depth violations must surface as 422s so queue workers treat them
	// as permanent rather than retryable.
	assert.Equal(t, http.StatusUnprocessableEntity, ErrDepthMismatch.HTTPStatus)
	assert.Equal(t, "depth_mismatch", ErrDepthMismatch.Code)
}

func TestConstructors(t *testing.T) {
	nf := NewNotFound("cost_group", "450")
	assert.Equal(t, http.StatusNotFound, nf.HTTPStatus)
	assert.Contains(t, nf.Message, "cost_group '450'")

	br := NewBadRequest("limit out of range")
	assert.Equal(t, "bad_request", br.Code)

	in := NewInternal("refresh failed", errors.New("deadlock"))
	assert.Equal(t, http.StatusInternalServerError, in.HTTPStatus)
	assert.EqualError(t, errors.Unwrap(in), "deadlock")
}
