package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/models"
	"notebook-ai/internal/repositories"
	"notebook-ai/internal/utils"

	"github.com/rs/zerolog/log"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService interface {
	Signup(ctx context.Context, req *dtos.SignupRequest) (*dtos.AuthResponse, uint32, error)
	Login(ctx context.Context, req *dtos.LoginRequest) (*dtos.AuthResponse, uint32, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dtos.RefreshTokenResponse, uint32, error)
	Logout(ctx context.Context, refreshToken string, accessToken string) (uint32, error)
	GetUser(ctx context.Context, userID string) (*models.User, uint32, error)
}

type TokenLifetimes struct {
	Access  time.Duration
	Refresh time.Duration
}

type authService struct {
	userRepo   repositories.UserRepository
	jwtService utils.JWTService
	tokenRepo  repositories.TokenRepository
	lifetimes  TokenLifetimes
}

func NewAuthService(userRepo repositories.UserRepository, jwtService utils.JWTService, tokenRepo repositories.TokenRepository, lifetimes TokenLifetimes) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenRepo:  tokenRepo,
		lifetimes:  lifetimes,
	}
}

func (s *authService) Signup(ctx context.Context, req *dtos.SignupRequest) (*dtos.AuthResponse, uint32, error) {
	existingUser, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		code, perr := persistenceError("look up user", err)
		return nil, code, perr
	}
	if existingUser != nil {
		return nil, http.StatusBadRequest, errors.New("username already exists")
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	user := models.NewUser(req.Username, hashedPassword)
	if err := s.userRepo.Create(ctx, user); err != nil {
		code, perr := persistenceError("create user", err)
		return nil, code, perr
	}

	resp, code, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, code, err
	}
	log.Info().Str("component", "auth").Str("user_id", user.ID.Hex()).Msg("user signed up")
	return resp, http.StatusCreated, nil
}

func (s *authService) Login(ctx context.Context, req *dtos.LoginRequest) (*dtos.AuthResponse, uint32, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		code, perr := persistenceError("look up user", err)
		return nil, code, perr
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.Password) {
		return nil, http.StatusUnauthorized, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

func (s *authService) issueTokens(ctx context.Context, user *models.User) (*dtos.AuthResponse, uint32, error) {
	accessToken, err := s.jwtService.GenerateToken(user.ID.Hex())
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID.Hex())
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	if err := s.tokenRepo.StoreRefreshToken(ctx, user.ID.Hex(), *refreshToken, s.lifetimes.Refresh); err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return &dtos.AuthResponse{
		AccessToken:  *accessToken,
		RefreshToken: *refreshToken,
		User:         *user,
	}, http.StatusOK, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dtos.RefreshTokenResponse, uint32, error) {
	userID, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, http.StatusUnauthorized, errors.New("invalid refresh token")
	}

	if !s.tokenRepo.ValidateRefreshToken(ctx, *userID, refreshToken) {
		return nil, http.StatusUnauthorized, repositories.ErrRefreshTokenNotFound
	}

	accessToken, err := s.jwtService.GenerateToken(*userID)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return &dtos.RefreshTokenResponse{
		AccessToken: *accessToken,
	}, http.StatusOK, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string, accessToken string) (uint32, error) {
	userID, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return http.StatusUnauthorized, errors.New("invalid refresh token")
	}
	if _, err := s.jwtService.ValidateToken(accessToken); err != nil {
		return http.StatusUnauthorized, errors.New("invalid access token")
	}

	err = s.tokenRepo.RevokeSession(ctx, *userID, refreshToken, accessToken, s.lifetimes.Access)
	if errors.Is(err, repositories.ErrRefreshTokenNotFound) {
		return http.StatusUnauthorized, err
	}
	if err != nil {
		return http.StatusInternalServerError, err
	}
	return http.StatusOK, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*models.User, uint32, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	if user == nil {
		return nil, http.StatusNotFound, errors.New("user not found")
	}
	return user, http.StatusOK, nil
}
