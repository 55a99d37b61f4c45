package services

import (
	"context"
	"sync"
	"sync/atomic"
)

type SubmissionOutcome string

const (
	OutcomePending   SubmissionOutcome = "pending"
	OutcomeCompleted SubmissionOutcome = "completed"
	OutcomeCancelled SubmissionOutcome = "cancelled"
	OutcomeFailed    SubmissionOutcome = "failed"
)

const (
	statePending int32 = iota
	stateCompleted
	stateCancelled
	stateFailed
)

var stateOutcomes = map[int32]SubmissionOutcome{
	statePending:   OutcomePending,
	stateCompleted: OutcomeCompleted,
	stateCancelled: OutcomeCancelled,
	stateFailed:    OutcomeFailed,
}

// Coordinator owns the terminal state of one submission. Client disconnect,
// explicit stop, and internal failure all race to move it out of pending;
// exactly one wins and every later trigger is a no-op.
//
// The upstream context is detached from the request context so that only a
// winning transition aborts the in-flight read.
type Coordinator struct {
	state atomic.Int32

	mu    sync.Mutex
	cause error

	ctx            context.Context
	cancel         context.CancelCauseFunc
	stopDisconnect func() bool
	finalizeOnce   sync.Once
}

// NewCoordinator watches parent for client disconnect.
func NewCoordinator(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancelCause(context.WithoutCancel(parent))
	c := &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
	c.stopDisconnect = context.AfterFunc(parent, func() {
		c.Cancel(ErrClientDisconnected)
	})
	return c
}

// Context is cancelled as soon as the submission reaches a terminal state.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

func (c *Coordinator) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Cancel records a cancellation. It returns false if the submission had
// already reached a terminal state.
func (c *Coordinator) Cancel(reason error) bool {
	if reason == nil {
		reason = ErrCancelled
	}
	return c.transition(stateCancelled, reason)
}

// Fail records an internal failure.
func (c *Coordinator) Fail(err error) bool {
	return c.transition(stateFailed, err)
}

// Complete records a fully drained upstream stream.
func (c *Coordinator) Complete() bool {
	return c.transition(stateCompleted, nil)
}

func (c *Coordinator) transition(to int32, cause error) bool {
	c.mu.Lock()
	if !c.state.CompareAndSwap(statePending, to) {
		c.mu.Unlock()
		return false
	}
	c.cause = cause
	c.mu.Unlock()

	c.cancel(cause)
	return true
}

// Cancelled reports whether a cancellation trigger won.
func (c *Coordinator) Cancelled() bool {
	return c.state.Load() == stateCancelled
}

// Terminated reports whether any terminal state was reached.
func (c *Coordinator) Terminated() bool {
	return c.state.Load() != statePending
}

func (c *Coordinator) Outcome() SubmissionOutcome {
	return stateOutcomes[c.state.Load()]
}

// Cause is the reason recorded by the winning transition: a cancel reason,
// a failure, or nil for completion.
func (c *Coordinator) Cause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

// Err is non-nil only for failed submissions.
func (c *Coordinator) Err() error {
	if c.state.Load() != stateFailed {
		return nil
	}
	return c.Cause()
}

// Finalize runs fn at most once across all callers.
func (c *Coordinator) Finalize(fn func()) {
	c.finalizeOnce.Do(fn)
}

// Release stops watching the request context and frees the upstream
// context. A still pending submission is cancelled.
func (c *Coordinator) Release() {
	c.stopDisconnect()
	c.Cancel(ErrCancelled)
	c.cancel(nil)
}
