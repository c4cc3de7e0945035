package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientErrorFormatting(t *testing.T) {
	err := New(CodeValidation, "invalid input: token id")
	assert.Equal(t, "[VALIDATION] invalid input: token id", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := WrapAs(cause, CodeGateway, "gateway read failed")
	assert.Equal(t, "[GATEWAY] gateway read failed: connection refused", wrapped.Error())
	assert.Equal(t, cause, stderrors.Unwrap(wrapped))
}

func TestWrapAsNil(t *testing.T) {
	assert.Nil(t, WrapAs(nil, CodeGateway, "ignored"))
}

func TestIsCode(t *testing.T) {
	err := NewEventNotFound("7")
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeGateway))

	// Works through additional wrapping.
	outer := fmt.Errorf("verify failed: %w", err)
	assert.True(t, IsCode(outer, CodeNotFound))

	assert.False(t, IsCode(stderrors.New("plain"), CodeNotFound))
	assert.False(t, IsCode(nil, CodeNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeAlreadyRunning, CodeOf(NewAlreadyRunning()))
	assert.Equal(t, Code(""), CodeOf(stderrors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, NewGatewayError("read", stderrors.New("timeout")).Retryable())
	assert.False(t, NewInvalidInput("token id").Retryable())
	assert.False(t, NewTokenNotFound("3").Retryable())
}

func TestWrongEventCarriesBothIDs(t *testing.T) {
	err := NewWrongEvent("12", "4", "9")
	require.True(t, IsCode(err, CodeMismatch))
	assert.Contains(t, err.Error(), "event 4")
	assert.Contains(t, err.Error(), "selected event 9")
	assert.Contains(t, err.Error(), "token 12")
}
