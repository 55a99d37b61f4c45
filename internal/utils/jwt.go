package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "notebook-ai"

var ErrInvalidTokenClaims = errors.New("invalid token claims")

type JWTService interface {
	GenerateToken(userID string) (*string, error)
	GenerateRefreshToken(userID string) (*string, error)
	ValidateToken(token string) (*string, error)
}

type jwtService struct {
	secretKey            string
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewJWTService(secretKey string, accessTokenDuration time.Duration, refreshTokenDuration time.Duration) JWTService {
	return &jwtService{
		secretKey:            secretKey,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

func (s *jwtService) GenerateToken(userID string) (*string, error) {
	return s.sign(userID, s.accessTokenDuration)
}

func (s *jwtService) GenerateRefreshToken(userID string) (*string, error) {
	return s.sign(userID, s.refreshTokenDuration)
}

func (s *jwtService) sign(userID string, ttl time.Duration) (*string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"iss":     tokenIssuer,
		"exp":     now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return nil, err
	}
	return &tokenString, nil
}

// ValidateToken verifies signature and expiry and returns the user id claim.
func (s *jwtService) ValidateToken(tokenString string) (*string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidTokenClaims
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidTokenClaims
	}
	return &userID, nil
}
