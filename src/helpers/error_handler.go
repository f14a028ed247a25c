package helpers

import (
	"errors"
	"fmt"

	"price-stream/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrMalformedMessage marks a frame that is not a {price, timestamp} record.
	ErrMalformedMessage = errors.New("malformed price message")
	// ErrResetInProgress is returned when a reset is requested while another is outstanding.
	ErrResetInProgress = errors.New("reset already in progress")
	// ErrSessionActive is returned by Start when a connection is already live.
	ErrSessionActive = errors.New("session already active")
	// ErrControllerClosed is returned once the controller loop has exited.
	ErrControllerClosed = errors.New("controller closed")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type FeedError struct {
	Op      string
	Message string
	Cause   error
}

func (e *FeedError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *FeedError) Unwrap() error {
	return e.Cause
}

// Distinct types so callers can errors.As on the failure class.
type ConfigurationError struct{ FeedError }
type TransportError struct{ FeedError }
type DecodeError struct{ FeedError }

// ResetError is a failed remote reset. StatusCode is zero when no response arrived.
type ResetError struct {
	FeedError
	StatusCode int
}

// -----------------------------------------------------------------------------

func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{FeedError{Op: op, Message: "transport failure", Cause: cause}}
}

func NewDecodeError(cause error) *DecodeError {
	return &DecodeError{FeedError{Op: "decode", Message: "invalid frame", Cause: cause}}
}

func NewResetError(statusCode int, cause error) *ResetError {
	msg := "reset request failed"
	if statusCode != 0 {
		msg = fmt.Sprintf("reset rejected with status %d", statusCode)
	}
	return &ResetError{FeedError: FeedError{Op: "reset", Message: msg, Cause: cause}, StatusCode: statusCode}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs failures and keeps a running count of consecutive ones.
// It is not safe for concurrent use; callers own one per goroutine.
type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err against context and bumps the counter. Decode errors are
// logged as warnings since the stream survives them.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.ErrorCount++

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		e.Logger.Warning("Error in %s: %v", context, err)
		return
	}
	e.Logger.Error("Error in %s: %v", context, err)
}
