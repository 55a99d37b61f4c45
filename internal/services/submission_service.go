package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/constants"
	"notebook-ai/internal/models"
	"notebook-ai/internal/observability"
	"notebook-ai/internal/repositories"
	"notebook-ai/internal/utils"
	"notebook-ai/pkg/answerengine"
	"notebook-ai/pkg/stream"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarkFailedTimeout bounds the write that flags an unanswered assistant
// message.
const MarkFailedTimeout = 10 * time.Second

// AnswerEngine opens the upstream status stream for one question.
type AnswerEngine interface {
	Open(ctx context.Context, req answerengine.Request) (*answerengine.Stream, error)
}

type SubmissionService interface {
	// Submit persists the question and an empty assistant message, then
	// relays the engine's status tokens until the stream ends or is
	// cancelled. ctx is the inbound request: when it ends the submission is
	// cancelled.
	Submit(ctx context.Context, userID, notebookID string, req *dtos.SubmitMessageRequest) (*Submission, uint32, error)
	Registry() *SubmissionRegistry
}

type SubmissionConfig struct {
	// SendTimeout bounds how long a status token may wait for the client
	// transport before the submission is cancelled.
	SendTimeout time.Duration
	BufferSize  int
}

type submissionService struct {
	repo     repositories.NotebookRepository
	engine   AnswerEngine
	registry *SubmissionRegistry
	metrics  *observability.SubmissionMetrics
	config   SubmissionConfig
}

func NewSubmissionService(
	repo repositories.NotebookRepository,
	engine AnswerEngine,
	registry *SubmissionRegistry,
	metrics *observability.SubmissionMetrics,
	config SubmissionConfig,
) SubmissionService {
	if config.SendTimeout <= 0 {
		config.SendTimeout = 30 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = constants.StatusBufferSize
	}
	return &submissionService{
		repo:     repo,
		engine:   engine,
		registry: registry,
		metrics:  metrics,
		config:   config,
	}
}

func (s *submissionService) Registry() *SubmissionRegistry {
	return s.registry
}

// Submission is a running question. Statuses is closed once the submission
// reaches a terminal state; Done is closed after that.
type Submission struct {
	NotebookID         string
	UserMessageID      string
	AssistantMessageID string

	statuses chan stream.StatusToken
	done     chan struct{}
	coord    *Coordinator
}

func (sub *Submission) Statuses() <-chan stream.StatusToken {
	return sub.statuses
}

func (sub *Submission) Done() <-chan struct{} {
	return sub.done
}

// Err returns the failure, if any. Cancellation and completion return nil.
func (sub *Submission) Err() error {
	return sub.coord.Err()
}

func (sub *Submission) Outcome() SubmissionOutcome {
	return sub.coord.Outcome()
}

// Cancelled reports whether a cancellation trigger won.
func (sub *Submission) Cancelled() bool {
	return sub.coord.Cancelled()
}

// CancelReason is the winning cancellation reason, nil unless cancelled.
func (sub *Submission) CancelReason() error {
	if !sub.coord.Cancelled() {
		return nil
	}
	return sub.coord.Cause()
}

// Cancel is the explicit stop trigger.
func (sub *Submission) Cancel() bool {
	return sub.coord.Cancel(ErrCancelledByUser)
}

func (s *submissionService) Submit(ctx context.Context, userID, notebookID string, req *dtos.SubmitMessageRequest) (*Submission, uint32, error) {
	question := strings.TrimSpace(req.Content)
	if question == "" {
		return nil, http.StatusBadRequest, ErrEmptyContent
	}
	if utf8.RuneCountInString(question) > constants.MaxQuestionLength {
		return nil, http.StatusBadRequest, ErrContentTooLong
	}

	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid user id")
	}
	notebookObjID, err := primitive.ObjectIDFromHex(notebookID)
	if err != nil {
		return nil, http.StatusNotFound, ErrNotebookNotFound
	}

	notebook, err := s.repo.FindByID(ctx, notebookObjID)
	if err != nil {
		code, perr := persistenceError("load notebook", err)
		return nil, code, perr
	}
	if notebook == nil || notebook.UserID != userObjID {
		return nil, http.StatusNotFound, ErrNotebookNotFound
	}

	logger := log.With().
		Str("component", "submission").
		Str("notebook_id", notebookID).
		Logger()

	encryptionKey := ""
	if req.EncryptionKey != nil {
		encryptionKey = *req.EncryptionKey
	}

	storedContent := question
	if notebook.Encryption.Encrypted() {
		if encryptionKey == "" {
			logger.Warn().Str("encryption", string(notebook.Encryption)).Msg("no encryption key supplied, storing question unencrypted")
		} else if encrypted, err := utils.EncryptContent(question, encryptionKey); err != nil {
			logger.Warn().Err(err).Msg("failed to encrypt question, storing it unencrypted")
		} else {
			storedContent = encrypted
		}
	}

	userMessage := models.NewMessage(userObjID, notebookObjID, constants.MessageTypeUser, storedContent)
	if err := s.repo.CreateMessage(ctx, userMessage); err != nil {
		code, perr := persistenceError("create user message", err)
		return nil, code, perr
	}

	assistantMessage := models.NewMessage(userObjID, notebookObjID, constants.MessageTypeAssistant, "")
	if err := s.repo.CreateMessage(ctx, assistantMessage); err != nil {
		if derr := s.repo.DeleteMessage(context.WithoutCancel(ctx), userMessage.ID); derr != nil {
			logger.Error().Err(derr).Str("user_message_id", userMessage.ID.Hex()).Msg("failed to remove unanswered user message")
		}
		code, perr := persistenceError("create assistant message", err)
		return nil, code, perr
	}

	coord := NewCoordinator(ctx)
	sub := &Submission{
		NotebookID:         notebookID,
		UserMessageID:      userMessage.ID.Hex(),
		AssistantMessageID: assistantMessage.ID.Hex(),
		statuses:           make(chan stream.StatusToken, s.config.BufferSize),
		done:               make(chan struct{}),
		coord:              coord,
	}

	engineReq := answerengine.Request{
		NotebookID:         notebookID,
		AssistantMessageID: sub.AssistantMessageID,
		UserMessageID:      sub.UserMessageID,
		Content:            question,
		EncryptionType:     string(notebook.Encryption),
	}
	if encryptionKey != "" {
		engineReq.EncryptionKey = &encryptionKey
	}

	s.registry.Register(sub.AssistantMessageID, userID, notebookID, coord)
	s.metrics.SubmissionStarted()

	logger.Info().
		Str("user_message_id", sub.UserMessageID).
		Str("assistant_message_id", sub.AssistantMessageID).
		Msg("submission started")

	go s.run(sub, engineReq)

	return sub, http.StatusOK, nil
}

func (s *submissionService) run(sub *Submission, req answerengine.Request) {
	started := time.Now()
	coord := sub.coord

	engineStream, err := s.engine.Open(coord.Context(), req)
	if err != nil {
		if !coord.Cancelled() {
			coord.Fail(&UpstreamError{Err: err})
		}
		s.finish(sub, started)
		return
	}

	for !coord.Terminated() {
		token, err := engineStream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				coord.Complete()
			} else if !coord.Cancelled() {
				coord.Fail(&UpstreamError{Err: err})
			}
			break
		}
		if !s.deliver(sub, token) {
			break
		}
	}

	_ = engineStream.Close()
	s.finish(sub, started)
}

// deliver hands one token to the transport. It gives up when the
// submission ends or the transport stalls past the send timeout.
func (s *submissionService) deliver(sub *Submission, token stream.StatusToken) bool {
	timer := time.NewTimer(s.config.SendTimeout)
	defer timer.Stop()

	select {
	case sub.statuses <- token:
		s.metrics.StatusRelayed()
		return true
	case <-sub.coord.Done():
		return false
	case <-timer.C:
		sub.coord.Cancel(ErrTransportStalled)
		return false
	}
}

func (s *submissionService) finish(sub *Submission, started time.Time) {
	coord := sub.coord
	outcome := coord.Outcome()
	logger := log.With().
		Str("component", "submission").
		Str("notebook_id", sub.NotebookID).
		Str("assistant_message_id", sub.AssistantMessageID).
		Str("outcome", string(outcome)).
		Logger()

	switch outcome {
	case OutcomeCancelled:
		trigger := cancelTrigger(coord.Cause())
		s.metrics.Cancelled(trigger)
		logger.Info().Str("trigger", trigger).Msg("submission cancelled")
	case OutcomeFailed:
		logger.Error().Err(coord.Err()).Msg("submission failed")
	default:
		logger.Info().Dur("elapsed", time.Since(started)).Msg("submission completed")
	}

	if outcome == OutcomeCancelled || outcome == OutcomeFailed {
		coord.Finalize(func() {
			s.markFailed(sub, logger)
		})
	}

	close(sub.statuses)
	s.registry.Unregister(sub.AssistantMessageID)
	s.metrics.SubmissionFinished(string(outcome), time.Since(started))
	coord.Release()
	close(sub.done)
}

// markFailed is a single best-effort write that outlives the request.
func (s *submissionService) markFailed(sub *Submission, logger zerolog.Logger) {
	messageID, err := primitive.ObjectIDFromHex(sub.AssistantMessageID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(sub.coord.Context()), MarkFailedTimeout)
	defer cancel()

	err = s.repo.MarkMessageFailed(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageCommitted) {
		logger.Info().Msg("answer already committed, leaving assistant message as is")
		return
	}
	if err != nil {
		s.metrics.MarkFailedError()
		logger.Error().Err(&PersistenceError{Op: "mark assistant message failed", Err: err}).Msg("assistant message left pending")
	}
}

func cancelTrigger(reason error) string {
	switch {
	case errors.Is(reason, ErrClientDisconnected):
		return "client_disconnect"
	case errors.Is(reason, ErrCancelledByUser):
		return "user_stop"
	case errors.Is(reason, ErrTransportStalled):
		return "transport_stall"
	default:
		return "shutdown"
	}
}
