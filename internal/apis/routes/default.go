package routes

import (
	"net/http"

	"notebook-ai/internal/apis/dtos"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupDefaultRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dtos.Response{
			Success: true,
			Data:    "Server is healthy!",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup all route groups
	SetupAuthRoutes(router)
	SetupNotebookRoutes(router)
	SetupEngineRoutes(router)
}
