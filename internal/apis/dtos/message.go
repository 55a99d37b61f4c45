package dtos

import (
	"notebook-ai/internal/models"
	"time"
)

type SubmitMessageRequest struct {
	Content       string  `json:"content" binding:"required"`
	EncryptionKey *string `json:"encryption_key,omitempty"`
}

// EngineMessageUpdate is sent by the answer engine to commit the final
// assistant content or report its own failure.
type EngineMessageUpdate struct {
	Content *string `json:"content,omitempty"`
	Failed  bool    `json:"failed"`
}

type MessageResponse struct {
	ID         string `json:"id"`
	NotebookID string `json:"notebook_id"`
	Role       string `json:"role"`
	Content    string `json:"content"`
	Failed     bool   `json:"failed"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
}

type CancelMessageResponse struct {
	MessageID string `json:"message_id"`
	// Forwarded is true when the stop was handed to another instance.
	Forwarded bool `json:"forwarded"`
}

func ToMessageResponse(message *models.Message) MessageResponse {
	return MessageResponse{
		ID:         message.ID.Hex(),
		NotebookID: message.NotebookID.Hex(),
		Role:       string(message.Role),
		Content:    message.Content,
		Failed:     message.Failed,
		CreatedAt:  message.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  message.UpdatedAt.Format(time.RFC3339Nano),
	}
}
