package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type activeSubmission struct {
	userID     string
	notebookID string
	coord      *Coordinator
}

// SubmissionRegistry tracks in-flight submissions by assistant message id so
// an explicit stop can reach them.
type SubmissionRegistry struct {
	mu     sync.RWMutex
	active map[string]activeSubmission
	// idle is closed while no submission is active.
	idle chan struct{}
}

func NewSubmissionRegistry() *SubmissionRegistry {
	idle := make(chan struct{})
	close(idle)
	return &SubmissionRegistry{
		active: make(map[string]activeSubmission),
		idle:   idle,
	}
}

func (r *SubmissionRegistry) Register(messageID, userID, notebookID string, coord *Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.active) == 0 {
		r.idle = make(chan struct{})
	}
	r.active[messageID] = activeSubmission{userID: userID, notebookID: notebookID, coord: coord}
}

func (r *SubmissionRegistry) Unregister(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[messageID]; !ok {
		return
	}
	delete(r.active, messageID)
	if len(r.active) == 0 {
		close(r.idle)
	}
}

// Cancel stops the submission if it is active here and owned by userID in
// notebookID. It returns true only when this call won the cancellation.
func (r *SubmissionRegistry) Cancel(messageID, userID, notebookID string, reason error) bool {
	r.mu.RLock()
	entry, ok := r.active[messageID]
	r.mu.RUnlock()

	if !ok || entry.userID != userID || entry.notebookID != notebookID {
		return false
	}
	return entry.coord.Cancel(reason)
}

// Has reports whether messageID is active on this instance.
func (r *SubmissionRegistry) Has(messageID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[messageID]
	return ok
}

func (r *SubmissionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// CancelAll stops every active submission, used on shutdown.
func (r *SubmissionRegistry) CancelAll(reason error) int {
	r.mu.RLock()
	entries := make([]activeSubmission, 0, len(r.active))
	for _, entry := range r.active {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	cancelled := 0
	for _, entry := range entries {
		if entry.coord.Cancel(reason) {
			cancelled++
		}
	}
	return cancelled
}

// WaitIdle blocks until every registered submission has unregistered, which
// happens after its final store write.
func (r *SubmissionRegistry) WaitIdle(ctx context.Context) error {
	for {
		r.mu.RLock()
		idle := r.idle
		r.mu.RUnlock()

		select {
		case <-idle:
			if r.Len() == 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HandleCancelRequest applies a stop request received from the cancel bus.
// Requests for submissions running elsewhere are ignored.
func (r *SubmissionRegistry) HandleCancelRequest(req CancelRequest) {
	if r.Cancel(req.MessageID, req.UserID, req.NotebookID, ErrCancelledByUser) {
		log.Info().Str("component", "registry").Str("assistant_message_id", req.MessageID).Msg("cancelled submission from bus")
	}
}
