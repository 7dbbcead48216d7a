package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestError_FallsBackToServerError(t *testing.T) {
	assert.Equal(t, "Employee not found", NewRequestError("Employee not found", 404).Message)
	assert.Equal(t, MsgServerError, NewRequestError("", 500).Message)
	assert.Equal(t, MsgServerError, NewRequestError("   ", 502).Message)
	assert.Equal(t, 502, NewRequestError("", 502).Metadata["status"])
}

func TestTransportAndTimeoutKeepCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewTransportError("pipeline", cause)
	assert.Equal(t, MsgServerError, err.Message)
	assert.Contains(t, err.Details, "connection refused")
	assert.ErrorIs(t, err, cause)

	timeout := NewTimeoutError("pipeline", context.DeadlineExceeded)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Equal(t, ErrCodeRequestTimeout, timeout.Code)
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeValidation, "VALIDATION"},
		{ErrCodeRequestFailed, "REQUEST"},
		{ErrCodeRequestTimeout, "REQUEST"},
		{ErrCodeContractViolation, "REQUEST"},
		{ErrCodeInvalidFlowState, "FLOW"},
		{ErrCodeFlowBusy, "FLOW"},
		{ErrCodeRequestSuperseded, "FLOW"},
		{ErrCodeSessionStoreFailure, "SESSION"},
		{"", "OTHER"},
		{"SOMETHING_ELSE", "OTHER"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewValidationError("Please enter your standup sentence."))
	assert.Equal(t, ErrCodeValidation, CodeOf(err))
	assert.True(t, IsValidation(err))
	assert.False(t, IsRequest(err))
	assert.True(t, HasCode(err, ErrCodeValidation))
	assert.False(t, HasCode(nil, ErrCodeValidation))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, MsgUnexpectedError, UserMessage(stderrors.New("boom")))
	assert.Equal(t, "Cannot confirm right now.", UserMessage(NewInvalidFlowStateError("confirm", "idle")))
}

type recordingLogger struct {
	warns  []map[string]interface{}
	errors []map[string]interface{}
}

func (l *recordingLogger) Warn(_ string, fields map[string]interface{}) {
	l.warns = append(l.warns, fields)
}

func (l *recordingLogger) Error(_ string, fields map[string]interface{}) {
	l.errors = append(l.errors, fields)
}

func TestErrorHandler_Handle(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	assert.Equal(t, "", h.Handle(nil))

	assert.Equal(t, "Please enter your standup sentence.", h.Handle(NewValidationError("Please enter your standup sentence.")))
	require.Len(t, log.warns, 1)
	assert.Equal(t, "VALIDATION", log.warns[0]["errorCategory"])

	assert.Equal(t, "Employee not found", h.Handle(NewRequestError("Employee not found", 404)))
	require.Len(t, log.errors, 1)
	assert.Equal(t, 404, log.errors[0]["status"])

	assert.Equal(t, MsgUnexpectedError, h.Handle(stderrors.New("disk full")))
	require.Len(t, log.errors, 2)
	assert.Equal(t, "disk full", log.errors[1]["details"])
}

func TestErrorHandler_NilLogger(t *testing.T) {
	h := NewErrorHandler(nil)
	assert.Equal(t, MsgServerError, h.Handle(NewRequestError("", 500)))
}
