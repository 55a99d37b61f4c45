package services

import (
	"context"
	"errors"
	"net/http"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/constants"
	"notebook-ai/internal/repositories"
	"notebook-ai/internal/utils"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MessageService interface {
	// ListMessages returns the conversation oldest first. Encrypted
	// contents are decrypted when encryptionKey is set.
	ListMessages(ctx context.Context, userID, notebookID, encryptionKey string) (*dtos.MessageListResponse, uint32, error)
	// CancelMessage stops the active submission that owns messageID, here
	// or on another instance.
	CancelMessage(ctx context.Context, userID, notebookID, messageID string) (*dtos.CancelMessageResponse, uint32, error)
	// ApplyEngineUpdate stores the final assistant content, or a failure,
	// reported by the answer engine.
	ApplyEngineUpdate(ctx context.Context, messageID string, update *dtos.EngineMessageUpdate) (uint32, error)
}

type messageService struct {
	repo     repositories.NotebookRepository
	registry *SubmissionRegistry
	bus      CancelBus
}

// NewMessageService accepts a nil bus for single instance deployments.
func NewMessageService(repo repositories.NotebookRepository, registry *SubmissionRegistry, bus CancelBus) MessageService {
	return &messageService{
		repo:     repo,
		registry: registry,
		bus:      bus,
	}
}

func (s *messageService) ListMessages(ctx context.Context, userID, notebookID, encryptionKey string) (*dtos.MessageListResponse, uint32, error) {
	notebook, code, err := loadOwnedNotebook(ctx, s.repo, userID, notebookID)
	if err != nil {
		return nil, code, err
	}

	messages, err := s.repo.FindMessagesByNotebook(ctx, notebook.ID)
	if err != nil {
		code, perr := persistenceError("list messages", err)
		return nil, code, perr
	}

	decrypt := notebook.Encryption.Encrypted() && encryptionKey != ""
	resp := &dtos.MessageListResponse{
		Messages: make([]dtos.MessageResponse, len(messages)),
		Total:    int64(len(messages)),
	}
	for i, message := range messages {
		if decrypt && message.Content != "" {
			if plaintext, err := utils.DecryptContent(message.Content, encryptionKey); err == nil {
				message.Content = plaintext
			} else {
				log.Debug().Err(err).Str("message_id", message.ID.Hex()).Msg("returning message content as stored")
			}
		}
		resp.Messages[i] = dtos.ToMessageResponse(message)
	}
	return resp, http.StatusOK, nil
}

func (s *messageService) CancelMessage(ctx context.Context, userID, notebookID, messageID string) (*dtos.CancelMessageResponse, uint32, error) {
	if _, code, err := loadOwnedNotebook(ctx, s.repo, userID, notebookID); err != nil {
		return nil, code, err
	}

	if s.registry.Cancel(messageID, userID, notebookID, ErrCancelledByUser) {
		return &dtos.CancelMessageResponse{MessageID: messageID}, http.StatusOK, nil
	}
	if s.registry.Has(messageID) {
		// Active here but already finishing, or owned by someone else.
		return nil, http.StatusNotFound, ErrSubmissionNotFound
	}
	if s.bus == nil {
		return nil, http.StatusNotFound, ErrSubmissionNotFound
	}

	err := s.bus.Publish(ctx, CancelRequest{MessageID: messageID, UserID: userID, NotebookID: notebookID})
	if err != nil {
		log.Error().Err(err).Str("component", "messages").Str("message_id", messageID).Msg("failed to forward cancel request")
		return nil, http.StatusInternalServerError, errors.New("failed to cancel message")
	}
	return &dtos.CancelMessageResponse{MessageID: messageID, Forwarded: true}, http.StatusAccepted, nil
}

func (s *messageService) ApplyEngineUpdate(ctx context.Context, messageID string, update *dtos.EngineMessageUpdate) (uint32, error) {
	messageObjID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return http.StatusNotFound, ErrMessageNotFound
	}

	message, err := s.repo.FindMessageByID(ctx, messageObjID)
	if err != nil {
		return persistenceError("load message", err)
	}
	if message == nil || message.Role != constants.MessageTypeAssistant {
		return http.StatusNotFound, ErrMessageNotFound
	}

	switch {
	case update.Failed:
		err = s.repo.MarkMessageFailed(ctx, messageObjID)
	case update.Content != nil:
		err = s.repo.UpdateMessageContent(ctx, messageObjID, *update.Content)
	default:
		return http.StatusBadRequest, errors.New("content or failed is required")
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return http.StatusNotFound, ErrMessageNotFound
	}
	if errors.Is(err, repositories.ErrMessageCommitted) {
		return http.StatusConflict, err
	}
	if err != nil {
		return persistenceError("update message", err)
	}
	return http.StatusOK, nil
}
