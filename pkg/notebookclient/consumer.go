package notebookclient

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"notebook-ai/pkg/stream"

	"github.com/google/uuid"
)

const (
	noticeSending   = "Sending message..."
	noticeSucceeded = "Message processed successfully"
	noticeCancelled = "Message cancelled"

	defaultErrorMessage = "Failed to process message"

	// DefaultCancelGrace bounds how long Cancel waits for the server to
	// close a stopped stream before refreshing the list anyway.
	DefaultCancelGrace = 5 * time.Second
)

var (
	ErrEmptyQuestion    = errors.New("question is empty")
	ErrSubmissionActive = errors.New("a submission is already in progress")
)

type ConsumerState int

const (
	StateIdle ConsumerState = iota
	StateSubmitting
	StateStreaming
)

func (s ConsumerState) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Transport is the part of Client the consumer depends on.
type Transport interface {
	ListMessages(ctx context.Context, notebookID, encryptionKey string) ([]Message, error)
	Subscribe(ctx context.Context, notebookID string, req SubmitRequest) (EventStream, error)
	CancelMessage(ctx context.Context, notebookID, messageID string) error
}

// Notifier surfaces user-facing notices.
type Notifier interface {
	Loading(msg string)
	Success(msg string)
	Error(msg string)
	Info(msg string)
	Dismiss()
}

// MessageCache is the locally visible conversation.
type MessageCache struct {
	mu       sync.RWMutex
	messages []Message
}

func (m *MessageCache) Append(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *MessageCache) Replace(messages []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append([]Message(nil), messages...)
}

func (m *MessageCache) Snapshot() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.messages...)
}

type ConsumerConfig struct {
	NotebookID    string
	EncryptionKey string
	// OnProgress, if set, is called with a snapshot after every change.
	OnProgress func(ProgressState)
	// CancelGrace defaults to DefaultCancelGrace.
	CancelGrace time.Duration
}

// Consumer drives one notebook's question box: it submits questions, tracks
// progress and reconciles the message list when a submission ends.
type Consumer struct {
	transport Transport
	notifier  Notifier
	cache     *MessageCache
	config    ConsumerConfig
	now       func() time.Time

	mu         sync.Mutex
	state      ConsumerState
	progress   ProgressState
	generation uint64
	cancel     context.CancelFunc
	stream     EventStream
	ended      chan struct{}
	assistant  string
	wg         sync.WaitGroup
}

func NewConsumer(transport Transport, notifier Notifier, cache *MessageCache, config ConsumerConfig) *Consumer {
	if cache == nil {
		cache = &MessageCache{}
	}
	if config.CancelGrace <= 0 {
		config.CancelGrace = DefaultCancelGrace
	}
	return &Consumer{
		transport: transport,
		notifier:  notifier,
		cache:     cache,
		config:    config,
		now:       time.Now,
	}
}

func (c *Consumer) State() ConsumerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Consumer) Progress() ProgressState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.clone()
}

// AssistantMessageID is the id announced by the server for the running
// submission, empty until known.
func (c *Consumer) AssistantMessageID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assistant
}

func (c *Consumer) Messages() []Message {
	return c.cache.Snapshot()
}

// Submit starts a question. It is rejected while another submission is
// active or when text is blank, without side effects.
func (c *Consumer) Submit(ctx context.Context, text string) error {
	question := strings.TrimSpace(text)
	if question == "" {
		return ErrEmptyQuestion
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrSubmissionActive
	}
	c.state = StateSubmitting
	c.generation++
	gen := c.generation
	c.assistant = ""
	c.progress.Reset()
	c.progress.IsLoading = true
	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	now := c.now()
	c.cache.Append(Message{
		ID:         "temp-" + uuid.NewString(),
		NotebookID: c.config.NotebookID,
		Role:       "user",
		Content:    question,
		CreatedAt:  timestamp(now),
		UpdatedAt:  timestamp(now),
	})
	c.notifier.Loading(noticeSending)
	c.emitProgress()

	req := SubmitRequest{Content: question}
	if c.config.EncryptionKey != "" {
		key := c.config.EncryptionKey
		req.EncryptionKey = &key
	}

	es, err := c.transport.Subscribe(subCtx, c.config.NotebookID, req)

	c.mu.Lock()
	if gen != c.generation {
		// Cancelled while the subscription was being opened.
		c.mu.Unlock()
		if es != nil {
			_ = es.Close()
		}
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		c.finishError(ctx, gen, err)
		return err
	}
	c.state = StateStreaming
	c.stream = es
	ended := make(chan struct{})
	c.ended = ended
	c.wg.Add(1)
	c.mu.Unlock()

	go c.consume(ctx, gen, es, ended)
	return nil
}

// Cancel returns to Idle at once, stops the submission on the server and
// then refreshes the message list. When the assistant message id is known
// the refresh waits for the server to end the stream, which happens after
// the assistant message has its final state.
func (c *Consumer) Cancel(ctx context.Context) bool {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return false
	}
	assistant := c.assistant
	ended := c.ended
	es, cancel := c.teardownLocked()
	c.mu.Unlock()

	c.notifier.Dismiss()
	c.notifier.Info(noticeCancelled)
	c.emitProgress()

	if es != nil && assistant != "" {
		c.stopOnServer(ctx, assistant, ended)
	}
	if cancel != nil {
		cancel()
	}
	if es != nil {
		_ = es.Close()
	}
	c.refetch(ctx)
	return true
}

// stopOnServer requests an explicit stop and waits for the stream reader to
// see the end of the stream. Dropping the connection remains the fallback.
func (c *Consumer) stopOnServer(ctx context.Context, messageID string, ended <-chan struct{}) {
	if err := c.transport.CancelMessage(ctx, c.config.NotebookID, messageID); err != nil {
		return
	}
	timer := time.NewTimer(c.config.CancelGrace)
	defer timer.Stop()
	select {
	case <-ended:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Wait blocks until the stream reader of the last submission has returned.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// teardownLocked resets to Idle and invalidates the running generation. The
// caller owns the returned stream and cancel func.
func (c *Consumer) teardownLocked() (EventStream, context.CancelFunc) {
	c.generation++
	cancel := c.cancel
	c.cancel = nil
	es := c.stream
	c.stream = nil
	c.ended = nil
	c.state = StateIdle
	c.progress.Reset()
	return es, cancel
}

func (c *Consumer) consume(ctx context.Context, gen uint64, es EventStream, ended chan struct{}) {
	defer c.wg.Done()
	defer close(ended)
	defer es.Close()

	for {
		event, err := es.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errStreamEnded
			}
			c.finishError(ctx, gen, err)
			return
		}

		switch event.Name {
		case EventSubmission:
			c.onSubmission(gen, event.Data)
		case EventStatus:
			c.onStatus(gen, stream.StatusToken(strings.TrimSpace(event.Data)))
		case EventDone:
			c.finishSuccess(ctx, gen)
			return
		case EventCancelled:
			c.finishCancelled(ctx, gen)
			return
		case EventError:
			c.finishError(ctx, gen, &APIError{Message: parseStreamError(event.Data).Message})
			return
		}
	}
}

func (c *Consumer) onSubmission(gen uint64, data string) {
	var info struct {
		AssistantMessageID string `json:"assistant_message_id"`
	}
	if err := decodeJSON(data, &info); err != nil {
		return
	}
	c.mu.Lock()
	if gen == c.generation {
		c.assistant = info.AssistantMessageID
	}
	c.mu.Unlock()
}

func (c *Consumer) onStatus(gen uint64, token stream.StatusToken) {
	if token == "" {
		return
	}
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.progress.Push(token)
	c.mu.Unlock()
	c.emitProgress()
}

// end moves to Idle if gen is still current. It reports whether the caller
// owns the terminal handling.
func (c *Consumer) end(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	if _, cancel := c.teardownLocked(); cancel != nil {
		cancel()
	}
	return true
}

func (c *Consumer) finishSuccess(ctx context.Context, gen uint64) {
	if !c.end(gen) {
		return
	}
	c.notifier.Dismiss()
	c.notifier.Success(noticeSucceeded)
	c.emitProgress()
	c.refetch(ctx)
}

func (c *Consumer) finishCancelled(ctx context.Context, gen uint64) {
	if !c.end(gen) {
		return
	}
	c.notifier.Dismiss()
	c.notifier.Info(noticeCancelled)
	c.emitProgress()
	c.refetch(ctx)
}

func (c *Consumer) finishError(ctx context.Context, gen uint64, err error) {
	if !c.end(gen) {
		return
	}
	msg := defaultErrorMessage
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	c.notifier.Dismiss()
	c.notifier.Error(msg)
	c.emitProgress()
	c.refetch(ctx)
}

// refetch replaces the optimistic list with the server's list. On failure
// the local list is kept.
func (c *Consumer) refetch(ctx context.Context) {
	messages, err := c.transport.ListMessages(context.WithoutCancel(ctx), c.config.NotebookID, c.config.EncryptionKey)
	if err != nil {
		return
	}
	c.cache.Replace(messages)
}

func (c *Consumer) emitProgress() {
	if c.config.OnProgress == nil {
		return
	}
	c.config.OnProgress(c.Progress())
}
