package middlewares

import (
	"crypto/subtle"
	"net/http"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/constants"

	"github.com/gin-gonic/gin"
)

// EngineAuthMiddleware guards routes reserved for the answer engine. An
// empty secret disables them.
func EngineAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(constants.EngineSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			errorMsg := "Forbidden"
			c.AbortWithStatusJSON(http.StatusForbidden, dtos.Response{
				Success: false,
				Error:   &errorMsg,
			})
			return
		}
		c.Next()
	}
}
