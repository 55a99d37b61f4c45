package services

import (
	"context"
	"net/http"
	"testing"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotebookService_Lifecycle(t *testing.T) {
	repo := newFakeNotebookRepo()
	svc := NewNotebookService(repo)
	ctx := context.Background()
	userID := primitive.NewObjectID().Hex()

	created, code, err := svc.Create(ctx, userID, &dtos.CreateNotebookRequest{Name: "  Papers  ", Encryption: constants.EncryptionSimple})
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusCreated), code)
	assert.Equal(t, "Papers", created.Name)

	list, _, err := svc.List(ctx, userID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	_, code, err = svc.GetByID(ctx, primitive.NewObjectID().Hex(), created.ID)
	assert.Equal(t, uint32(http.StatusNotFound), code)
	assert.ErrorIs(t, err, ErrNotebookNotFound)

	notebookID, _ := primitive.ObjectIDFromHex(created.ID)
	newConversation(repo, repo.notebooks[notebookID], "q", "a")

	code, err = svc.Delete(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusOK), code)
	assert.Zero(t, repo.messageCount())

	_, code, _ = svc.GetByID(ctx, userID, created.ID)
	assert.Equal(t, uint32(http.StatusNotFound), code)
}

func TestNotebookService_CreateRequiresName(t *testing.T) {
	svc := NewNotebookService(newFakeNotebookRepo())

	_, code, err := svc.Create(context.Background(), primitive.NewObjectID().Hex(), &dtos.CreateNotebookRequest{Name: "   "})

	assert.Equal(t, uint32(http.StatusBadRequest), code)
	assert.Error(t, err)
}
