// Package notebookclient is a Go client for the notebook-ai HTTP API,
// including a consumer for the message submission stream.
package notebookclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	EventSubmission = "submission"
	EventStatus     = "status"
	EventError      = "error"
	EventCancelled  = "cancelled"
	EventDone       = "done"
	EventHeartbeat  = "heartbeat"

	encryptionKeyHeader = "X-Encryption-Key"
)

type Message struct {
	ID         string `json:"id"`
	NotebookID string `json:"notebook_id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	Failed     bool   `json:"failed"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type SubmitRequest struct {
	Content       string  `json:"content"`
	EncryptionKey *string `json:"encryption_key,omitempty"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notebook-ai api error %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

// EventStream is an open submission subscription.
type EventStream interface {
	Next() (Event, error)
	Close() error
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient talks to baseURL with a bearer token. A nil httpClient uses a
// client without timeout, as submission streams are long lived.
func NewClient(baseURL, accessToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  httpClient,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	return req, nil
}

func decodeAPIError(resp *http.Response) error {
	var env envelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: *env.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		msg := "request failed"
		if env.Error != nil {
			msg = *env.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return json.Unmarshal(env.Data, out)
}

// ListMessages returns the authoritative conversation, oldest first.
func (c *Client) ListMessages(ctx context.Context, notebookID, encryptionKey string) ([]Message, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/notebooks/"+url.PathEscape(notebookID)+"/messages", nil)
	if err != nil {
		return nil, err
	}
	if encryptionKey != "" {
		req.Header.Set(encryptionKeyHeader, encryptionKey)
	}

	var list struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(req, &list); err != nil {
		return nil, err
	}
	return list.Messages, nil
}

// Subscribe submits a question and returns its event stream. Cancelling ctx
// or closing the stream disconnects, which stops the submission server side.
func (c *Client) Subscribe(ctx context.Context, notebookID string, submit SubmitRequest) (EventStream, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/notebooks/"+url.PathEscape(notebookID)+"/messages", submit)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return &subscription{body: resp.Body, reader: NewEventReader(resp.Body)}, nil
}

// CancelMessage asks the server to stop the submission producing messageID.
func (c *Client) CancelMessage(ctx context.Context, notebookID, messageID string) error {
	path := fmt.Sprintf("/api/notebooks/%s/messages/%s/cancel", url.PathEscape(notebookID), url.PathEscape(messageID))
	req, err := c.newRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

type subscription struct {
	body   io.ReadCloser
	reader *EventReader
}

func (s *subscription) Next() (Event, error) {
	return s.reader.Next()
}

func (s *subscription) Close() error {
	return s.body.Close()
}

// StreamError is the payload of an "error" event.
type StreamError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

func parseStreamError(data string) StreamError {
	var se StreamError
	if err := json.Unmarshal([]byte(data), &se); err != nil || se.Message == "" {
		return StreamError{Message: defaultErrorMessage}
	}
	return se
}

var errStreamEnded = errors.New("stream ended before completion")

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeJSON(data string, out interface{}) error {
	return json.Unmarshal([]byte(data), out)
}
