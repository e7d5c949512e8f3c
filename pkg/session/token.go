package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrTokenSigningFailed  = errors.New("failed to sign token")
	ErrInvalidSecretLength = errors.New("session secret must be at least 32 characters")
)

// TokenConfig holds configuration for session token generation.
type TokenConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string

	// Issuer is the token issuer claim. Default: "gridhost".
	Issuer string

	// TTL is the token lifetime. Default: 24 hours.
	TTL time.Duration
}

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	UserName  string `json:"user"`
}

// TokenService signs and validates session tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a token service with the given configuration.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if config.Issuer == "" {
		config.Issuer = "gridhost"
	}
	if config.TTL == 0 {
		config.TTL = 24 * time.Hour
	}
	return &TokenService{config: config}, nil
}

// Generate signs a token for the session and returns it with its expiry.
func (s *TokenService) Generate(sess *Session) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.TTL)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   sess.UserName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sess.ID,
		UserID:    sess.UserID,
		UserName:  sess.UserName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, ErrTokenSigningFailed
	}
	return signed, expiresAt, nil
}

// Validate parses a token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// generateSecret returns a random hex secret for runs where the settings
// document carries none. Tokens signed with it do not survive a restart.
func generateSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to read random secret: %v", err))
	}
	return hex.EncodeToString(buf)
}
