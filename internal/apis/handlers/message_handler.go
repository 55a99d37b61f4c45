package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/constants"
	"notebook-ai/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type MessageHandler struct {
	submissionService services.SubmissionService
	messageService    services.MessageService
	heartbeatInterval time.Duration
}

func NewMessageHandler(submissionService services.SubmissionService, messageService services.MessageService, heartbeatInterval time.Duration) *MessageHandler {
	if submissionService == nil || messageService == nil {
		log.Fatal().Msg("message handler requires submission and message services")
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 15 * time.Second
	}
	return &MessageHandler{
		submissionService: submissionService,
		messageService:    messageService,
		heartbeatInterval: heartbeatInterval,
	}
}

func errorResponse(c *gin.Context, statusCode uint32, err error) {
	errorMsg := err.Error()
	c.JSON(int(statusCode), dtos.Response{
		Success: false,
		Error:   &errorMsg,
	})
}

// @Summary List messages
// @Description List the conversation of a notebook, oldest first
// @Produce json
// @Param id path string true "Notebook ID"
// @Param X-Encryption-Key header string false "Passphrase used to decrypt message content"
// @Success 200 {object} dtos.Response
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID := c.GetString("userID")
	notebookID := c.Param("id")
	encryptionKey := c.GetHeader(constants.EncryptionKeyHeader)

	response, statusCode, err := h.messageService.ListMessages(c.Request.Context(), userID, notebookID, encryptionKey)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Submit message
// @Description Submit a question and stream the answer engine's progress as server-sent events
// @Accept json
// @Produce text/event-stream
// @Param id path string true "Notebook ID"
// @Param submitMessageRequest body dtos.SubmitMessageRequest true "Question"
func (h *MessageHandler) SubmitMessage(c *gin.Context) {
	userID := c.GetString("userID")
	notebookID := c.Param("id")

	var req dtos.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	if req.EncryptionKey == nil {
		if key := c.GetHeader(constants.EncryptionKeyHeader); key != "" {
			req.EncryptionKey = &key
		}
	}

	ctx := c.Request.Context()
	sub, statusCode, err := h.submissionService.Submit(ctx, userID, notebookID, &req)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	logger := log.With().
		Str("component", "message_handler").
		Str("notebook_id", notebookID).
		Str("assistant_message_id", sub.AssistantMessageID).
		Logger()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	h.writeEvent(c, constants.StreamEventSubmission, dtos.SubmissionStarted{
		NotebookID:         sub.NotebookID,
		UserMessageID:      sub.UserMessageID,
		AssistantMessageID: sub.AssistantMessageID,
	})

	heartbeatTicker := time.NewTicker(h.heartbeatInterval)
	defer heartbeatTicker.Stop()

	statuses := sub.Statuses()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("client disconnected")
			return

		case <-heartbeatTicker.C:
			h.writeEvent(c, constants.StreamEventHeartbeat, "ping")

		case token, ok := <-statuses:
			if !ok {
				h.writeTerminal(c, sub)
				return
			}
			if sub.Cancelled() {
				continue
			}
			h.writeEvent(c, constants.StreamEventStatus, token.String())
		}
	}
}

func (h *MessageHandler) writeEvent(c *gin.Context, event string, data interface{}) {
	c.SSEvent(event, data)
	c.Writer.Flush()
}

func (h *MessageHandler) writeTerminal(c *gin.Context, sub *services.Submission) {
	<-sub.Done()

	switch sub.Outcome() {
	case services.OutcomeCompleted:
		h.writeEvent(c, constants.StreamEventDone, gin.H{"assistant_message_id": sub.AssistantMessageID})
	case services.OutcomeCancelled:
		reason := "cancelled"
		if cause := sub.CancelReason(); cause != nil {
			reason = cause.Error()
		}
		h.writeEvent(c, constants.StreamEventCancelled, gin.H{"assistant_message_id": sub.AssistantMessageID, "reason": reason})
	default:
		h.writeEvent(c, constants.StreamEventError, streamError(sub.Err()))
	}
}

func streamError(err error) dtos.StreamError {
	var upstream *services.UpstreamError
	if errors.As(err, &upstream) {
		return dtos.StreamError{Message: upstream.UserMessage(), StatusCode: upstream.StatusCode()}
	}
	return dtos.StreamError{Message: "Failed to process message"}
}

// @Summary Cancel message
// @Description Stop the active submission that is producing the given assistant message
// @Produce json
// @Param id path string true "Notebook ID"
// @Param messageId path string true "Assistant message ID"
// @Success 200 {object} dtos.Response
func (h *MessageHandler) CancelMessage(c *gin.Context) {
	userID := c.GetString("userID")
	notebookID := c.Param("id")
	messageID := c.Param("messageId")

	response, statusCode, err := h.messageService.CancelMessage(c.Request.Context(), userID, notebookID, messageID)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Engine message update
// @Description Used by the answer engine to store final assistant content or report a failure
// @Accept json
// @Produce json
// @Param messageId path string true "Assistant message ID"
// @Success 200 {object} dtos.Response
func (h *MessageHandler) ApplyEngineUpdate(c *gin.Context) {
	var req dtos.EngineMessageUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	statusCode, err := h.messageService.ApplyEngineUpdate(c.Request.Context(), strings.TrimSpace(c.Param("messageId")), &req)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    "Message updated",
	})
}
