package dtos

import (
	"notebook-ai/internal/constants"
	"notebook-ai/internal/models"
	"time"
)

type CreateNotebookRequest struct {
	Name        string                   `json:"name" binding:"required,max=120"`
	Description string                   `json:"description"`
	Encryption  constants.EncryptionType `json:"encryption" binding:"omitempty,oneof=NotEncrypted SimpleEncryption AdvancedEncryption"`
}

type NotebookResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Encryption  string `json:"encryption"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type NotebookListResponse struct {
	Notebooks []NotebookResponse `json:"notebooks"`
	Total     int64              `json:"total"`
}

func ToNotebookResponse(notebook *models.Notebook) NotebookResponse {
	return NotebookResponse{
		ID:          notebook.ID.Hex(),
		UserID:      notebook.UserID.Hex(),
		Name:        notebook.Name,
		Description: notebook.Description,
		Encryption:  string(notebook.Encryption),
		CreatedAt:   notebook.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   notebook.UpdatedAt.Format(time.RFC3339),
	}
}
