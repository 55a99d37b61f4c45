package services

import (
	"errors"
	"net/http"

	"notebook-ai/pkg/answerengine"
)

var (
	ErrNotebookNotFound   = errors.New("Notebook not found")
	ErrMessageNotFound    = errors.New("Message not found")
	ErrEmptyContent       = errors.New("message content is required")
	ErrContentTooLong     = errors.New("message content is too long")
	ErrSubmissionNotFound = errors.New("no active submission for this message")

	// ErrCancelled is the parent of every cancellation reason. Cancellation
	// is a normal outcome and is never reported as an error.
	ErrCancelled          = errors.New("submission cancelled")
	ErrClientDisconnected = cancelReason("client disconnected")
	ErrCancelledByUser    = cancelReason("cancelled by user")
	ErrTransportStalled   = cancelReason("status transport stalled")
)

type cancelReasonError struct {
	msg string
}

func cancelReason(msg string) error {
	return &cancelReasonError{msg: msg}
}

func (e *cancelReasonError) Error() string {
	return e.msg
}

func (e *cancelReasonError) Is(target error) bool {
	return target == ErrCancelled
}

// UpstreamError reports a failure of the answer engine exchange.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// StatusCode is the upstream HTTP status, or 0 when no response arrived.
func (e *UpstreamError) StatusCode() int {
	var httpErr *answerengine.HTTPError
	if errors.As(e.Err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// UserMessage is the text shown to the submitter.
func (e *UpstreamError) UserMessage() string {
	var httpErr *answerengine.HTTPError
	if errors.As(e.Err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return "Failed to process message"
}

// PersistenceError wraps conversation store failures.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) (uint32, error) {
	return http.StatusInternalServerError, &PersistenceError{Op: op, Err: err}
}
