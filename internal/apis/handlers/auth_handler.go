package handlers

import (
	"errors"
	"net/http"
	"strings"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var errInvalidAuthorizationHeader = errors.New("Invalid authorization header")

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	if authService == nil {
		log.Fatal().Msg("auth service cannot be nil")
	}
	return &AuthHandler{
		authService: authService,
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// @Summary Signup
// @Description Signup a new user
// @Accept json
// @Produce json
// @Param signupRequest body dtos.SignupRequest true "Signup request"
// @Success 201 {object} dtos.Response
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dtos.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	response, statusCode, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Login
// @Description Login a user
// @Accept json
// @Produce json
// @Param loginRequest body dtos.LoginRequest true "Login request"
// @Success 200 {object} dtos.Response
func (h *AuthHandler) Login(c *gin.Context) {
	var req dtos.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	response, statusCode, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Refresh Token
// @Description Refresh a user's access token
// @Produce json
// @Param Authorization header string true "Bearer refresh token"
// @Success 200 {object} dtos.Response
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, ok := bearerToken(c)
	if !ok {
		errorResponse(c, http.StatusBadRequest, errInvalidAuthorizationHeader)
		return
	}

	response, statusCode, err := h.authService.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    response,
	})
}

// @Summary Logout
// @Description Revoke the refresh token and blacklist the access token
// @Accept json
// @Produce json
// @Param logoutRequest body dtos.LogoutRequest true "Logout request"
// @Success 200 {object} dtos.Response
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dtos.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	accessToken, ok := bearerToken(c)
	if !ok {
		errorResponse(c, http.StatusBadRequest, errInvalidAuthorizationHeader)
		return
	}

	statusCode, err := h.authService.Logout(c.Request.Context(), req.RefreshToken, accessToken)
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    "Successfully logged out",
	})
}

// @Summary Get User
// @Description Get user details
// @Produce json
// @Success 200 {object} dtos.Response
func (h *AuthHandler) GetUser(c *gin.Context) {
	user, statusCode, err := h.authService.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		errorResponse(c, statusCode, err)
		return
	}

	c.JSON(int(statusCode), dtos.Response{
		Success: true,
		Data:    user,
	})
}
