package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Message(t *testing.T) {
	err := ErrValidation(CodeInvalidJSON, "event is not a JSON object")
	assert.Equal(t, "INVALID_JSON: event is not a JSON object", err.Error())

	err.WithCause(errors.New("unexpected EOF"))
	assert.Equal(t, "INVALID_JSON: event is not a JSON object: unexpected EOF", err.Error())
}

func TestDomainError_ChainMatching(t *testing.T) {
	cause := context.DeadlineExceeded
	err := fmt.Errorf("prompting: %w", ErrTimeout("session prompt").WithCause(cause))

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &DomainError{Category: ErrCatTimeout, Code: CodeTimeout})
	assert.NotErrorIs(t, err, &DomainError{Category: ErrCatTimeout, Code: CodeHostRequest})

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "session prompt", de.Message)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := ErrExecution(CodeHostRequest, "POST /session failed").
		WithDetail("status", 502).
		WithDetail("body", "bad gateway")
	assert.Equal(t, map[string]any{"status": 502, "body": "bad gateway"}, err.Details)
}

func TestFactories(t *testing.T) {
	tests := []struct {
		err  *DomainError
		cat  ErrorCategory
		code string
	}{
		{ErrValidation(CodeInvalidConfig, "m"), ErrCatValidation, CodeInvalidConfig},
		{ErrExecution(CodeHostRequest, "m"), ErrCatExecution, CodeHostRequest},
		{ErrTimeout("m"), ErrCatTimeout, CodeTimeout},
		{ErrNotFound("autolearn status", "x.json"), ErrCatNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.cat, tt.err.Category)
		assert.Equal(t, tt.code, tt.err.Code)
	}
	assert.Equal(t, "autolearn status not found: x.json", ErrNotFound("autolearn status", "x.json").Message)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, ErrCatValidation, CategoryOf(fmt.Errorf("wrap: %w", ErrValidation(CodeInvalidEvent, "m"))))
	assert.Equal(t, ErrCatInternal, CategoryOf(errors.New("plain")))

	assert.True(t, IsCategory(ErrTimeout("m"), ErrCatTimeout))
	assert.False(t, IsCategory(nil, ErrCatInternal))
	assert.False(t, IsCategory(errors.New("plain"), ErrCatValidation))
}
