package handlers

import (
	"net/http"
	"strconv"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type NotebookHandler struct {
	notebookService services.NotebookService
}

func NewNotebookHandler(notebookService services.NotebookService) *NotebookHandler {
	if notebookService == nil {
		log.Fatal().Msg("notebook service cannot be nil")
	}
	return &NotebookHandler{
		notebookService: notebookService,
	}
}

// @Summary Create notebook
// @Accept json
// @Produce json
// @Param createNotebookRequest body dtos.CreateNotebookRequest true "Notebook"
// @Success 201 {object} dtos.Response
func (h *NotebookHandler) Create(c *gin.Context) {
	userID := c.GetString("userID")

	var req dtos.CreateNotebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	response, statusCode, err := h.notebookService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary List notebooks
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dtos.Response
func (h *NotebookHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	response, statusCode, err := h.notebookService.List(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Get notebook
// @Produce json
// @Param id path string true "Notebook ID"
// @Success 200 {object} dtos.Response
func (h *NotebookHandler) GetByID(c *gin.Context) {
	userID := c.GetString("userID")

	response, statusCode, err := h.notebookService.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Delete notebook
// @Description Delete a notebook and its messages
// @Produce json
// @Param id path string true "Notebook ID"
// @Success 200 {object} dtos.Response
func (h *NotebookHandler) Delete(c *gin.Context) {
	userID := c.GetString("userID")

	statusCode, err := h.notebookService.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    "Notebook deleted successfully",
	})
}
