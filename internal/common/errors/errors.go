// Package errors provides standardized error handling for the standup intake flow
// and the dashboard clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeRequestFailed       ErrorCode = "REQUEST_FAILED"
	ErrCodeRequestTimeout      ErrorCode = "REQUEST_TIMEOUT"
	ErrCodeContractViolation   ErrorCode = "RESPONSE_CONTRACT_VIOLATION"
	ErrCodeInvalidFlowState    ErrorCode = "INVALID_FLOW_STATE"
	ErrCodeFlowBusy            ErrorCode = "FLOW_BUSY"
	ErrCodeRequestSuperseded   ErrorCode = "REQUEST_SUPERSEDED"
	ErrCodeSessionStoreFailure ErrorCode = "SESSION_STORE_FAILURE"
)

// Fallback messages shown when the server gives none.
const (
	MsgServerError     = "Server error"
	MsgUnexpectedError = "Unexpected error"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata returns e after setting a metadata key.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input error. Nothing was sent.
func NewValidationError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestError creates an error for a failed call whose message comes from
// the server. An empty message falls back to MsgServerError.
func NewRequestError(message string, status int) *StandardError {
	if strings.TrimSpace(message) == "" {
		message = MsgServerError
	}
	return &StandardError{
		Code:      ErrCodeRequestFailed,
		Message:   message,
		Details:   fmt.Sprintf("status: %d", status),
		Retryable: true,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError wraps a network failure. The user sees the fallback message.
func NewTransportError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestFailed,
		Message:   MsgServerError,
		Details:   fmt.Sprintf("service: %s, error: %s", service, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewContractViolationError reports a response body that does not match its declared contract.
func NewContractViolationError(contractID string, problems []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeContractViolation,
		Message:   MsgServerError,
		Details:   fmt.Sprintf("contract: %s, problems: %s", contractID, strings.Join(problems, "; ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"contract": contractID},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidFlowStateError(operation, state string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFlowState,
		Message:   fmt.Sprintf("Cannot %s right now.", operation),
		Details:   fmt.Sprintf("operation: %s, state: %s", operation, state),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewFlowBusyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeFlowBusy,
		Message:   "A request is already in progress.",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewRequestSupersededError(seq uint64) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestSuperseded,
		Message:   "Response ignored because the request was superseded.",
		Details:   fmt.Sprintf("seq: %d", seq),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailure,
		Message:   "Session store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsValidation reports whether err was raised before any I/O.
func IsValidation(err error) bool {
	return GetErrorCategory(CodeOf(err)) == "VALIDATION"
}

// IsRequest reports whether err came from a remote call.
func IsRequest(err error) bool {
	return GetErrorCategory(CodeOf(err)) == "REQUEST"
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case codeStr == "":
		return "OTHER"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "REQUEST") && code != ErrCodeRequestSuperseded,
		strings.Contains(codeStr, "CONTRACT"):
		return "REQUEST"
	case strings.Contains(codeStr, "FLOW") || code == ErrCodeRequestSuperseded:
		return "FLOW"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	default:
		return "OTHER"
	}
}

// UserMessage returns the inline message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Message
	}
	return MsgUnexpectedError
}
