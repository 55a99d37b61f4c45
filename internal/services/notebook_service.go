package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/models"
	"notebook-ai/internal/repositories"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotebookService interface {
	Create(ctx context.Context, userID string, req *dtos.CreateNotebookRequest) (*dtos.NotebookResponse, uint32, error)
	List(ctx context.Context, userID string, page, pageSize int) (*dtos.NotebookListResponse, uint32, error)
	GetByID(ctx context.Context, userID, notebookID string) (*dtos.NotebookResponse, uint32, error)
	Delete(ctx context.Context, userID, notebookID string) (uint32, error)
}

type notebookService struct {
	repo repositories.NotebookRepository
}

func NewNotebookService(repo repositories.NotebookRepository) NotebookService {
	return &notebookService{repo: repo}
}

func (s *notebookService) Create(ctx context.Context, userID string, req *dtos.CreateNotebookRequest) (*dtos.NotebookResponse, uint32, error) {
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid user id")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, http.StatusBadRequest, errors.New("notebook name is required")
	}

	notebook := models.NewNotebook(userObjID, name, strings.TrimSpace(req.Description), req.Encryption)
	if err := s.repo.Create(ctx, notebook); err != nil {
		code, perr := persistenceError("create notebook", err)
		return nil, code, perr
	}

	log.Info().Str("component", "notebooks").Str("notebook_id", notebook.ID.Hex()).Msg("notebook created")
	resp := dtos.ToNotebookResponse(notebook)
	return &resp, http.StatusCreated, nil
}

func (s *notebookService) List(ctx context.Context, userID string, page, pageSize int) (*dtos.NotebookListResponse, uint32, error) {
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid user id")
	}

	notebooks, total, err := s.repo.FindByUserID(ctx, userObjID, page, pageSize)
	if err != nil {
		code, perr := persistenceError("list notebooks", err)
		return nil, code, perr
	}

	resp := &dtos.NotebookListResponse{
		Notebooks: make([]dtos.NotebookResponse, len(notebooks)),
		Total:     total,
	}
	for i, notebook := range notebooks {
		resp.Notebooks[i] = dtos.ToNotebookResponse(notebook)
	}
	return resp, http.StatusOK, nil
}

func (s *notebookService) GetByID(ctx context.Context, userID, notebookID string) (*dtos.NotebookResponse, uint32, error) {
	notebook, code, err := loadOwnedNotebook(ctx, s.repo, userID, notebookID)
	if err != nil {
		return nil, code, err
	}
	resp := dtos.ToNotebookResponse(notebook)
	return &resp, http.StatusOK, nil
}

// Delete removes the notebook and its conversation.
func (s *notebookService) Delete(ctx context.Context, userID, notebookID string) (uint32, error) {
	notebook, code, err := loadOwnedNotebook(ctx, s.repo, userID, notebookID)
	if err != nil {
		return code, err
	}
	if err := s.repo.DeleteMessages(ctx, notebook.ID); err != nil {
		return persistenceError("delete messages", err)
	}
	if err := s.repo.Delete(ctx, notebook.ID); err != nil {
		return persistenceError("delete notebook", err)
	}
	return http.StatusOK, nil
}

// loadOwnedNotebook treats malformed ids and foreign notebooks as missing.
func loadOwnedNotebook(ctx context.Context, repo repositories.NotebookRepository, userID, notebookID string) (*models.Notebook, uint32, error) {
	userObjID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid user id")
	}
	notebookObjID, err := primitive.ObjectIDFromHex(notebookID)
	if err != nil {
		return nil, http.StatusNotFound, ErrNotebookNotFound
	}

	notebook, err := repo.FindByID(ctx, notebookObjID)
	if err != nil {
		code, perr := persistenceError("load notebook", err)
		return nil, code, perr
	}
	if notebook == nil || notebook.UserID != userObjID {
		return nil, http.StatusNotFound, ErrNotebookNotFound
	}
	return notebook, http.StatusOK, nil
}
