package middlewares

import (
	"net/http"
	"strings"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/di"
	"notebook-ai/internal/repositories"
	"notebook-ai/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware resolves its dependencies from the DI container.
func AuthMiddleware() gin.HandlerFunc {
	var jwtService utils.JWTService
	var tokenRepo repositories.TokenRepository
	if err := di.DiContainer.Invoke(func(service utils.JWTService, repo repositories.TokenRepository) {
		jwtService = service
		tokenRepo = repo
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to resolve auth middleware dependencies")
	}
	return NewAuthMiddleware(jwtService, tokenRepo)
}

func abortUnauthorized(c *gin.Context, errorMsg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dtos.Response{
		Success: false,
		Error:   &errorMsg,
	})
}

// NewAuthMiddleware validates the bearer token and stores the user id under
// "userID" in the gin context.
func NewAuthMiddleware(jwtService utils.JWTService, tokenRepo repositories.TokenRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		token := parts[1]

		if tokenRepo.IsTokenBlacklisted(c.Request.Context(), token) {
			abortUnauthorized(c, "Token has been revoked")
			return
		}

		userID, err := jwtService.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set("userID", *userID)
		c.Next()
	}
}
