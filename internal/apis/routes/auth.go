package routes

import (
	"notebook-ai/internal/apis/middlewares"
	"notebook-ai/internal/di"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func SetupAuthRoutes(router *gin.Engine) {
	authHandler, err := di.GetAuthHandler()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get auth handler")
	}

	auth := router.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
	}

	protected := router.Group("/api/auth")
	protected.Use(middlewares.AuthMiddleware())
	{
		protected.GET("/", authHandler.GetUser)
		protected.POST("/logout", authHandler.Logout)
		protected.GET("/refresh-token", authHandler.RefreshToken)
	}
}
