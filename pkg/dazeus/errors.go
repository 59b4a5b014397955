package dazeus

import (
	"errors"
	"fmt"
)

// Error codes carried by SocketError.
const (
	CodeConnectionClosed  = "CONNECTION_CLOSED"
	CodeTransport         = "TRANSPORT"
	CodeDecode            = "DECODE"
	CodeInvalidPayload    = "INVALID_PAYLOAD"
	CodeProtocolViolation = "PROTOCOL_VIOLATION"
	CodeUnknownAddress    = "UNKNOWN_ADDRESS"
)

// Sentinels for errors.Is. Matching compares codes only, so a SocketError created anywhere in
// the package matches the sentinel with the same code.
var (
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = NewSocketError(CodeConnectionClosed, "connection closed", "")
	// ErrTransport reports a read or write failure on the underlying stream.
	ErrTransport = NewSocketError(CodeTransport, "transport failure", "")
	// ErrDecode reports a frame that could not be decoded.
	ErrDecode = NewSocketError(CodeDecode, "malformed frame", "")
	// ErrInvalidPayload reports a decoded document that is not a valid event.
	ErrInvalidPayload = NewSocketError(CodeInvalidPayload, "invalid payload", "")
	// ErrProtocolViolation reports a response that arrived while no request was pending.
	ErrProtocolViolation = NewSocketError(CodeProtocolViolation, "protocol violation", "")
	// ErrUnknownAddress reports an address with an unsupported connection flavor.
	ErrUnknownAddress = NewSocketError(CodeUnknownAddress, "unknown address type", "")
)

// SocketError represents a failure of a session or its connection
type SocketError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *SocketError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *SocketError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a SocketError with the same code
func (e *SocketError) Is(target error) bool {
	var t *SocketError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewSocketError creates a new SocketError
func NewSocketError(code, message, details string) *SocketError {
	return &SocketError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func wrapError(code, message string, err error) *SocketError {
	return &SocketError{Code: code, Message: message, Err: err}
}

func invalidPayload(details string) *SocketError {
	return NewSocketError(CodeInvalidPayload, "invalid payload", details)
}

// closedError builds the error returned once a session is closed. cause is the failure that
// closed it, or nil after an explicit Close.
func closedError(cause error) *SocketError {
	return wrapError(CodeConnectionClosed, "connection closed", cause)
}
