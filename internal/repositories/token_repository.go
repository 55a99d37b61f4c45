package repositories

import (
	"context"
	"errors"
	"fmt"
	"notebook-ai/pkg/redis"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

type TokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID string, refreshToken string, ttl time.Duration) error
	ValidateRefreshToken(ctx context.Context, userID string, refreshToken string) bool
	RevokeSession(ctx context.Context, userID, refreshToken, accessToken string, accessTTL time.Duration) error
	IsTokenBlacklisted(ctx context.Context, token string) bool
}

type tokenRepository struct {
	redis redis.IRedisRepositories
}

func NewTokenRepository(redis redis.IRedisRepositories) TokenRepository {
	return &tokenRepository{
		redis: redis,
	}
}

func refreshTokenKey(userID, refreshToken string) string {
	return fmt.Sprintf("refresh_token:%s:%s", userID, refreshToken)
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func (r *tokenRepository) StoreRefreshToken(ctx context.Context, userID string, refreshToken string, ttl time.Duration) error {
	if err := r.redis.Set(refreshTokenKey(userID, refreshToken), []byte("valid"), ttl, ctx); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	log.Debug().Str("component", "tokens").Str("user_id", userID).Dur("ttl", ttl).Msg("stored refresh token")
	return nil
}

func (r *tokenRepository) ValidateRefreshToken(ctx context.Context, userID string, refreshToken string) bool {
	value, err := r.redis.Get(refreshTokenKey(userID, refreshToken), ctx)
	if err != nil {
		return false
	}
	return value == "valid"
}

// RevokeSession deletes the refresh token and blacklists the access token
// for the rest of its lifetime in a single round trip.
func (r *tokenRepository) RevokeSession(ctx context.Context, userID, refreshToken, accessToken string, accessTTL time.Duration) error {
	key := refreshTokenKey(userID, refreshToken)
	if _, err := r.redis.Get(key, ctx); err != nil {
		return ErrRefreshTokenNotFound
	}

	pipe := r.redis.StartPipeline(ctx)
	pipe.Del(ctx, key)
	pipe.Set(ctx, blacklistKey(accessToken), "blacklisted", accessTTL)
	if err := pipe.Execute(ctx); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	log.Debug().Str("component", "tokens").Str("user_id", userID).Msg("revoked session")
	return nil
}

func (r *tokenRepository) IsTokenBlacklisted(ctx context.Context, token string) bool {
	value, err := r.redis.Get(blacklistKey(token), ctx)
	if err != nil {
		return false
	}
	return value == "blacklisted"
}
