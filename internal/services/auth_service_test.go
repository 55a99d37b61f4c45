package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"notebook-ai/internal/apis/dtos"
	"notebook-ai/internal/models"
	"notebook-ai/internal/repositories"
	"notebook-ai/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memoryUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[username], nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID.Hex() == userID {
			return user, nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Username] = user
	return nil
}

type memoryTokenRepo struct {
	mu          sync.Mutex
	refresh     map[string]string
	blacklisted map[string]bool
}

func (m *memoryTokenRepo) StoreRefreshToken(ctx context.Context, userID, refreshToken string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[userID] = refreshToken
	return nil
}

func (m *memoryTokenRepo) ValidateRefreshToken(ctx context.Context, userID, refreshToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh[userID] == refreshToken
}

func (m *memoryTokenRepo) RevokeSession(ctx context.Context, userID, refreshToken, accessToken string, accessTTL time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refresh[userID] != refreshToken {
		return repositories.ErrRefreshTokenNotFound
	}
	delete(m.refresh, userID)
	m.blacklisted[accessToken] = true
	return nil
}

func (m *memoryTokenRepo) IsTokenBlacklisted(ctx context.Context, token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blacklisted[token]
}

func newTestAuthService() (AuthService, *memoryTokenRepo) {
	tokens := &memoryTokenRepo{refresh: map[string]string{}, blacklisted: map[string]bool{}}
	svc := NewAuthService(
		&memoryUserRepo{users: map[string]*models.User{}},
		utils.NewJWTService("test-secret", time.Minute, time.Hour),
		tokens,
		TokenLifetimes{Access: time.Minute, Refresh: time.Hour},
	)
	return svc, tokens
}

func TestAuthService_SignupLoginLogout(t *testing.T) {
	svc, tokens := newTestAuthService()
	ctx := context.Background()

	signup, code, err := svc.Signup(ctx, &dtos.SignupRequest{Username: "reader", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusCreated), code)
	assert.NotEmpty(t, signup.AccessToken)

	_, code, err = svc.Signup(ctx, &dtos.SignupRequest{Username: "reader", Password: "other-pass"})
	assert.Equal(t, uint32(http.StatusBadRequest), code)
	assert.Error(t, err)

	_, code, err = svc.Login(ctx, &dtos.LoginRequest{Username: "reader", Password: "wrong"})
	assert.Equal(t, uint32(http.StatusUnauthorized), code)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, code, err := svc.Login(ctx, &dtos.LoginRequest{Username: "reader", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusOK), code)

	refreshed, _, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	code, err = svc.Logout(ctx, login.RefreshToken, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusOK), code)
	assert.True(t, tokens.IsTokenBlacklisted(ctx, login.AccessToken))

	_, code, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.Equal(t, uint32(http.StatusUnauthorized), code)
	assert.ErrorIs(t, err, repositories.ErrRefreshTokenNotFound)
}

func TestAuthService_GetUser(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	signup, _, err := svc.Signup(ctx, &dtos.SignupRequest{Username: "reader", Password: "hunter22"})
	require.NoError(t, err)

	user, code, err := svc.GetUser(ctx, signup.User.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint32(http.StatusOK), code)
	assert.Equal(t, "reader", user.Username)

	_, code, _ = svc.GetUser(ctx, "missing")
	assert.Equal(t, uint32(http.StatusNotFound), code)
}
