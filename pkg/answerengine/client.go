package answerengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notebook-ai/pkg/stream"

	"github.com/rs/zerolog/log"
)

const maxErrorBodyBytes = 4 << 10

// Request is the body posted to the answer engine for one submission.
type Request struct {
	NotebookID         string  `json:"notebook_id"`
	AssistantMessageID string  `json:"assistant_message_id"`
	UserMessageID      string  `json:"user_message_id"`
	Content            string  `json:"content"`
	EncryptionType     string  `json:"encryption_type"`
	EncryptionKey      *string `json:"encryption_key,omitempty"`
}

// HTTPError is returned when the engine answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("answer engine returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("answer engine returned status %d: %s", e.StatusCode, e.Message)
}

// UnreachableError wraps transport failures before any response arrived.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return "answer engine unreachable: " + e.Err.Error()
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

type Config struct {
	URL string
	// Timeout bounds the whole exchange including the streamed body.
	// Zero means no timeout.
	Timeout time.Duration
}

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// NewClientWithHTTP lets callers supply their own transport.
func NewClientWithHTTP(url string, httpClient *http.Client) *Client {
	return &Client{url: url, httpClient: httpClient}
}

// Open posts the request and returns the token stream. The request is bound
// to ctx: cancelling it aborts the exchange, including a blocked Next.
func (c *Client) Open(ctx context.Context, req Request) (*Stream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer engine request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build answer engine request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	log.Debug().
		Str("component", "answerengine").
		Str("notebook_id", req.NotebookID).
		Str("assistant_message_id", req.AssistantMessageID).
		Msg("opening answer stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &UnreachableError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	return &Stream{
		body:    resp.Body,
		scanner: stream.NewFrameScanner(resp.Body),
	}, nil
}

// Stream yields status tokens in arrival order.
type Stream struct {
	body    io.ReadCloser
	scanner *stream.FrameScanner
}

// Next returns the next token, or io.EOF when the engine closed the stream.
func (s *Stream) Next() (stream.StatusToken, error) {
	return s.scanner.Next()
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	return s.body.Close()
}
