package routes

import (
	"notebook-ai/config"
	"notebook-ai/internal/apis/middlewares"
	"notebook-ai/internal/di"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func SetupNotebookRoutes(router *gin.Engine) {
	notebookHandler, err := di.GetNotebookHandler()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get notebook handler")
	}
	messageHandler, err := di.GetMessageHandler()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get message handler")
	}
	rateLimiter := middlewares.NewSubmissionRateLimiter(config.Env.SubmissionsPerMinute)

	protected := router.Group("/api/notebooks")
	protected.Use(middlewares.AuthMiddleware())
	{
		// Notebook CRUD
		protected.POST("", notebookHandler.Create)
		protected.GET("", notebookHandler.List)
		protected.GET("/:id", notebookHandler.GetByID)
		protected.DELETE("/:id", notebookHandler.Delete)

		// Messages within a notebook
		protected.GET("/:id/messages", messageHandler.ListMessages)
		protected.POST("/:id/messages", rateLimiter.Middleware(), messageHandler.SubmitMessage)
		protected.POST("/:id/messages/:messageId/cancel", messageHandler.CancelMessage)
	}
}

// SetupEngineRoutes registers the side channel used by the answer engine.
func SetupEngineRoutes(router *gin.Engine) {
	messageHandler, err := di.GetMessageHandler()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get message handler")
	}
	internal := router.Group("/internal")
	internal.Use(middlewares.EngineAuthMiddleware(config.Env.AnswerEngineSecret))
	{
		internal.PUT("/messages/:messageId", messageHandler.ApplyEngineUpdate)
	}
}
