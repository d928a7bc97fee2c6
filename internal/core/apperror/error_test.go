package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactories_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", NewValidation("bad qty"), CodeValidation, http.StatusBadRequest},
		{"not found", NewNotFound("order", "o-1"), CodeNotFound, http.StatusNotFound},
		{"state", NewInvalidStateTransition("order", "o-1", "draft", "fulfilled"), CodeInvalidStateTransition, http.StatusBadRequest},
		{"abort", NewTransactionAbort(errors.New("40001")), CodeTransactionAborted, http.StatusConflict},
		{"forbidden", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
		})
	}
}

func TestInvalidStateTransition_Details(t *testing.T) {
	err := NewInvalidStateTransition("order", "o-1", "draft", "fulfilled")

	assert.Equal(t, "draft", err.Details["from"])
	assert.Equal(t, "fulfilled", err.Details["to"])
	assert.Contains(t, err.Message, "draft")
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	base := NewNotFound("sku", "s-1")
	wrapped := fmt.Errorf("create order: %w", base)

	assert.True(t, IsAppError(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, appErr)
}

func TestTransactionAbort_Unwrap(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := NewTransactionAbort(cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsTransactionAbort(err))
}

func TestWithStatus(t *testing.T) {
	err := NewNotFound("sku price", "s-1").WithStatus(http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(err))
	assert.True(t, IsNotFound(err))
}

func TestGetHTTPStatus_UnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
}
