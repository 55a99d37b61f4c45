package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"notebook-ai/internal/apis/dtos"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CustomRecoveryMiddleware handles panics and returns a proper response DTO
func CustomRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("component", "recovery").
					Str("path", c.Request.URL.Path).
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")

				errorMsg := "Internal Server Error"
				if gin.IsDebugging() {
					errorMsg = fmt.Sprintf("Internal Server Error: %v", err)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, dtos.Response{
					Success: false,
					Error:   &errorMsg,
				})
			}
		}()
		c.Next()
	}
}
