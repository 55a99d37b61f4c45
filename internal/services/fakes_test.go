package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"notebook-ai/internal/constants"
	"notebook-ai/internal/models"
	"notebook-ai/internal/repositories"
	"notebook-ai/pkg/answerengine"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeNotebookRepo struct {
	mu         sync.Mutex
	notebooks  map[primitive.ObjectID]*models.Notebook
	messages   map[primitive.ObjectID]*models.Message
	markFailed map[primitive.ObjectID]int

	findErr            error
	createMessageErr   error
	createAssistantErr error
	markFailedErr      error
	markFailedHook     func()
}

func newFakeNotebookRepo() *fakeNotebookRepo {
	return &fakeNotebookRepo{
		notebooks:  make(map[primitive.ObjectID]*models.Notebook),
		messages:   make(map[primitive.ObjectID]*models.Message),
		markFailed: make(map[primitive.ObjectID]int),
	}
}

func (f *fakeNotebookRepo) addNotebook(userID primitive.ObjectID, encryption constants.EncryptionType) *models.Notebook {
	notebook := models.NewNotebook(userID, "Research", "", encryption)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notebooks[notebook.ID] = notebook
	return notebook
}

func (f *fakeNotebookRepo) addMessage(message *models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[message.ID] = message
}

func (f *fakeNotebookRepo) Create(ctx context.Context, notebook *models.Notebook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notebooks[notebook.ID] = notebook
	return nil
}

func (f *fakeNotebookRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notebooks, id)
	return nil
}

func (f *fakeNotebookRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notebook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	notebook, ok := f.notebooks[id]
	if !ok {
		return nil, nil
	}
	cp := *notebook
	return &cp, nil
}

func (f *fakeNotebookRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, pageSize int) ([]*models.Notebook, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notebook
	for _, notebook := range f.notebooks {
		if notebook.UserID == userID {
			cp := *notebook
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotebookRepo) CreateMessage(ctx context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createMessageErr != nil {
		return f.createMessageErr
	}
	if f.createAssistantErr != nil && message.Role == constants.MessageTypeAssistant {
		return f.createAssistantErr
	}
	cp := *message
	f.messages[message.ID] = &cp
	return nil
}

func (f *fakeNotebookRepo) FindMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *message
	return &cp, nil
}

func (f *fakeNotebookRepo) FindMessagesByNotebook(ctx context.Context, notebookID primitive.ObjectID) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Message
	for _, message := range f.messages {
		if message.NotebookID == notebookID {
			cp := *message
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeNotebookRepo) UpdateMessageContent(ctx context.Context, id primitive.ObjectID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.messages[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	message.Content = content
	return nil
}

func (f *fakeNotebookRepo) MarkMessageFailed(ctx context.Context, id primitive.ObjectID) error {
	if f.markFailedHook != nil {
		f.markFailedHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markFailed[id]++
	if f.markFailedErr != nil {
		return f.markFailedErr
	}
	message, ok := f.messages[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if message.Content != "" {
		return repositories.ErrMessageCommitted
	}
	message.Failed = true
	return nil
}

func (f *fakeNotebookRepo) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, id)
	return nil
}

func (f *fakeNotebookRepo) DeleteMessages(ctx context.Context, notebookID primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, message := range f.messages {
		if message.NotebookID == notebookID {
			delete(f.messages, id)
		}
	}
	return nil
}

func (f *fakeNotebookRepo) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeNotebookRepo) markFailedCalls(id string) int {
	oid, _ := primitive.ObjectIDFromHex(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markFailed[oid]
}

func (f *fakeNotebookRepo) message(id string) models.Message {
	oid, _ := primitive.ObjectIDFromHex(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.messages[oid]
}

// newEngineServer starts an answer engine double and returns a client for it.
func newEngineServer(t *testing.T, handler http.HandlerFunc) *answerengine.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return answerengine.NewClientWithHTTP(server.URL, server.Client())
}

type fakeCancelBus struct {
	mu        sync.Mutex
	published []CancelRequest
	err       error
}

func (b *fakeCancelBus) Publish(ctx context.Context, req CancelRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, req)
	return nil
}

func (b *fakeCancelBus) Listen(ctx context.Context, handle func(CancelRequest)) error {
	<-ctx.Done()
	return ctx.Err()
}
