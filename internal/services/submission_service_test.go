package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/constants"
	"notebook-ai/internal/observability"
	"notebook-ai/internal/utils"
	"notebook-ai/pkg/answerengine"
	"notebook-ai/pkg/stream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type submissionFixture struct {
	repo     *fakeNotebookRepo
	registry *SubmissionRegistry
	metrics  *observability.SubmissionMetrics
	service  SubmissionService
	userID   primitive.ObjectID
}

func newSubmissionFixture(t *testing.T, engine AnswerEngine, config SubmissionConfig) *submissionFixture {
	t.Helper()
	repo := newFakeNotebookRepo()
	registry := NewSubmissionRegistry()
	metrics := observability.NewSubmissionMetrics(prometheus.NewRegistry())
	return &submissionFixture{
		repo:     repo,
		registry: registry,
		metrics:  metrics,
		service:  NewSubmissionService(repo, engine, registry, metrics, config),
		userID:   primitive.NewObjectID(),
	}
}

func collectStatuses(sub *Submission) <-chan []stream.StatusToken {
	out := make(chan []stream.StatusToken, 1)
	go func() {
		var tokens []stream.StatusToken
		for token := range sub.Statuses() {
			tokens = append(tokens, token)
		}
		out <- tokens
	}()
	return out
}

func waitDone(t *testing.T, sub *Submission) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not finish")
	}
}

func TestSubmit_HappyPath(t *testing.T) {
	requests := make(chan answerengine.Request, 1)
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req answerengine.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		fmt.Fprint(w, "data: retrieving_chunks\n\n")
		fmt.Fprint(w, "data: generating_response\n\ndata: saving_to_db")
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	sub, code, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "  What changed in Q3?  "})
	require.NoError(t, err)
	require.Equal(t, uint32(http.StatusOK), code)

	tokens := <-collectStatuses(sub)
	waitDone(t, sub)

	assert.Equal(t, []stream.StatusToken{stream.RetrievingChunks, stream.GeneratingResponse, stream.SavingToDB}, tokens)
	assert.Equal(t, OutcomeCompleted, sub.Outcome())
	assert.NoError(t, sub.Err())
	assert.Equal(t, 2, f.repo.messageCount())

	req := <-requests
	assert.Equal(t, notebook.ID.Hex(), req.NotebookID)
	assert.Equal(t, sub.AssistantMessageID, req.AssistantMessageID)
	assert.Equal(t, sub.UserMessageID, req.UserMessageID)
	assert.Equal(t, "What changed in Q3?", req.Content)
	assert.Equal(t, string(constants.EncryptionNone), req.EncryptionType)
	assert.Nil(t, req.EncryptionKey)

	userMessage := f.repo.message(sub.UserMessageID)
	assert.Equal(t, "What changed in Q3?", userMessage.Content)
	assistant := f.repo.message(sub.AssistantMessageID)
	assert.Equal(t, constants.MessageTypeAssistant, assistant.Role)
	assert.Empty(t, assistant.Content)
	assert.False(t, assistant.Failed)

	assert.False(t, sub.Cancel())
	assert.Zero(t, f.repo.markFailedCalls(sub.AssistantMessageID))

	assert.Zero(t, f.registry.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.SubmissionsTotal.WithLabelValues("completed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.StatusTokensTotal))
}

func TestSubmit_NotebookNotFoundWritesNothing(t *testing.T) {
	engineCalled := make(chan struct{}, 1)
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		engineCalled <- struct{}{}
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	foreign := f.repo.addNotebook(primitive.NewObjectID(), constants.EncryptionNone)

	for _, notebookID := range []string{primitive.NewObjectID().Hex(), foreign.ID.Hex(), "not-an-id"} {
		sub, code, err := f.service.Submit(context.Background(), f.userID.Hex(), notebookID, &dtos.SubmitMessageRequest{Content: "hello"})

		assert.Nil(t, sub)
		assert.Equal(t, uint32(http.StatusNotFound), code)
		assert.ErrorIs(t, err, ErrNotebookNotFound)
	}
	assert.Zero(t, f.repo.messageCount())
	assert.Len(t, engineCalled, 0)
}

func TestSubmit_RejectsInvalidContent(t *testing.T) {
	f := newSubmissionFixture(t, nil, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	_, code, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: " \n\t "})
	assert.Equal(t, uint32(http.StatusBadRequest), code)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, code, err = f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: strings.Repeat("x", constants.MaxQuestionLength+1)})
	assert.Equal(t, uint32(http.StatusBadRequest), code)
	assert.ErrorIs(t, err, ErrContentTooLong)

	assert.Zero(t, f.repo.messageCount())
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	f := newSubmissionFixture(t, nil, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)
	f.repo.createMessageErr = errors.New("connection reset")

	sub, code, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})

	assert.Nil(t, sub)
	assert.Equal(t, uint32(http.StatusInternalServerError), code)
	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
	assert.Zero(t, f.registry.Len())
}

func TestSubmit_ClientDisconnectCancelsUpstream(t *testing.T) {
	upstreamGone := make(chan struct{})
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: retrieving_chunks\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(upstreamGone)
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	reqCtx, disconnect := context.WithCancel(context.Background())
	sub, _, err := f.service.Submit(reqCtx, f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})
	require.NoError(t, err)

	select {
	case token := <-sub.Statuses():
		assert.Equal(t, stream.RetrievingChunks, token)
	case <-time.After(5 * time.Second):
		t.Fatal("no status token")
	}
	disconnect()
	waitDone(t, sub)
	assert.False(t, sub.Cancel())

	select {
	case <-upstreamGone:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream request was not aborted")
	}
	assert.Equal(t, OutcomeCancelled, sub.Outcome())
	assert.ErrorIs(t, sub.CancelReason(), ErrClientDisconnected)
	assert.NoError(t, sub.Err())
	assert.Equal(t, 1, f.repo.markFailedCalls(sub.AssistantMessageID))
	assert.True(t, f.repo.message(sub.AssistantMessageID).Failed)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CancellationsTotal.WithLabelValues("client_disconnect")))
}

func TestSubmit_ExplicitStop(t *testing.T) {
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: preparing_question\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	sub, _, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})
	require.NoError(t, err)
	<-sub.Statuses()

	assert.False(t, f.registry.Cancel(sub.AssistantMessageID, primitive.NewObjectID().Hex(), notebook.ID.Hex(), ErrCancelledByUser))
	assert.True(t, f.registry.Cancel(sub.AssistantMessageID, f.userID.Hex(), notebook.ID.Hex(), ErrCancelledByUser))
	assert.False(t, sub.Cancel())
	waitDone(t, sub)

	assert.Equal(t, OutcomeCancelled, sub.Outcome())
	assert.ErrorIs(t, sub.CancelReason(), ErrCancelledByUser)
	assert.Equal(t, 1, f.repo.markFailedCalls(sub.AssistantMessageID))
	assert.False(t, f.registry.Has(sub.AssistantMessageID))
}

func TestSubmit_UpstreamErrorMarksFailed(t *testing.T) {
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Answer engine overloaded", http.StatusServiceUnavailable)
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	sub, _, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})
	require.NoError(t, err)
	tokens := <-collectStatuses(sub)
	waitDone(t, sub)

	assert.Empty(t, tokens)
	assert.Equal(t, OutcomeFailed, sub.Outcome())
	var upstream *UpstreamError
	require.ErrorAs(t, sub.Err(), &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode())
	assert.Equal(t, "Answer engine overloaded", upstream.UserMessage())
	assert.Equal(t, 1, f.repo.markFailedCalls(sub.AssistantMessageID))
}

func TestSubmit_MarkFailedErrorIsCounted(t *testing.T) {
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)
	f.repo.markFailedErr = errors.New("write concern")

	sub, _, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})
	require.NoError(t, err)
	<-collectStatuses(sub)
	waitDone(t, sub)

	assert.Equal(t, 1, f.repo.markFailedCalls(sub.AssistantMessageID))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.MarkFailedErrorsTotal))
	assert.Equal(t, "Failed to process message", (&UpstreamError{Err: errors.New("x")}).UserMessage())
}

func TestSubmit_StalledTransportCancels(t *testing.T) {
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		for _, token := range []string{"retrieving_chunks", "filtering_chunks", "extracting_content"} {
			fmt.Fprintf(w, "data: %s\n\n", token)
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{SendTimeout: 50 * time.Millisecond, BufferSize: 1})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	sub, _, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})
	require.NoError(t, err)
	waitDone(t, sub)

	assert.Equal(t, OutcomeCancelled, sub.Outcome())
	assert.ErrorIs(t, sub.CancelReason(), ErrTransportStalled)
	assert.Equal(t, 1, f.repo.markFailedCalls(sub.AssistantMessageID))
}

func TestSubmit_EncryptedNotebook(t *testing.T) {
	requests := make(chan answerengine.Request, 1)
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req answerengine.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
	})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionSimple)
	key := "correct horse battery staple"

	sub, _, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "private question", EncryptionKey: &key})
	require.NoError(t, err)
	<-collectStatuses(sub)
	waitDone(t, sub)

	stored := f.repo.message(sub.UserMessageID).Content
	assert.NotEqual(t, "private question", stored)
	plaintext, err := utils.DecryptContent(stored, key)
	require.NoError(t, err)
	assert.Equal(t, "private question", plaintext)

	req := <-requests
	assert.Equal(t, "private question", req.Content)
	assert.Equal(t, string(constants.EncryptionSimple), req.EncryptionType)
	require.NotNil(t, req.EncryptionKey)
	assert.Equal(t, key, *req.EncryptionKey)
}

func TestSubmit_EncryptedNotebookWithoutKeyStoresPlaintext(t *testing.T) {
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {})
	f := newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionAdvanced)

	sub, _, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "question"})
	require.NoError(t, err)
	<-collectStatuses(sub)
	waitDone(t, sub)

	assert.Equal(t, "question", f.repo.message(sub.UserMessageID).Content)
	assert.Equal(t, OutcomeCompleted, sub.Outcome())
}

func TestSubmit_CancelAfterEngineCommitKeepsAnswer(t *testing.T) {
	var f *submissionFixture
	engine := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req answerengine.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		messageID, _ := primitive.ObjectIDFromHex(req.AssistantMessageID)
		_ = f.repo.UpdateMessageContent(r.Context(), messageID, "final answer")

		fmt.Fprint(w, "data: saving_to_db\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	f = newSubmissionFixture(t, engine, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)

	reqCtx, disconnect := context.WithCancel(context.Background())
	sub, _, err := f.service.Submit(reqCtx, f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})
	require.NoError(t, err)

	select {
	case token := <-sub.Statuses():
		assert.Equal(t, stream.SavingToDB, token)
	case <-time.After(5 * time.Second):
		t.Fatal("no status token")
	}
	disconnect()
	waitDone(t, sub)

	assert.Equal(t, OutcomeCancelled, sub.Outcome())
	assert.Equal(t, 1, f.repo.markFailedCalls(sub.AssistantMessageID))
	assistant := f.repo.message(sub.AssistantMessageID)
	assert.Equal(t, "final answer", assistant.Content)
	assert.False(t, assistant.Failed)
	assert.Zero(t, testutil.ToFloat64(f.metrics.MarkFailedErrorsTotal))
}

func TestSubmit_AssistantInsertFailureRemovesUserMessage(t *testing.T) {
	f := newSubmissionFixture(t, nil, SubmissionConfig{})
	notebook := f.repo.addNotebook(f.userID, constants.EncryptionNone)
	f.repo.createAssistantErr = errors.New("connection reset")

	sub, code, err := f.service.Submit(context.Background(), f.userID.Hex(), notebook.ID.Hex(), &dtos.SubmitMessageRequest{Content: "hello"})

	assert.Nil(t, sub)
	assert.Equal(t, uint32(http.StatusInternalServerError), code)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "create assistant message", perr.Op)
	assert.Zero(t, f.repo.messageCount())
	assert.Zero(t, f.registry.Len())
}
