package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frankariuki86-png/megapark-backend/internal/pkg/env"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the authenticated principal carried by a token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Pair is an access/refresh token pair. Refresh tokens rotate on use.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Claims embeds the registered claims plus our identity and token type.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// Service issues and verifies short-lived access plus longer-lived refresh
// tokens. Both are HMAC-signed; the secrets differ so a refresh token can
// never slip through an access-token check.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewServiceFromEnv() *Service {
	return &Service{
		accessSecret:  []byte(env.GetEnv("JWT_SECRET", "dev-secret-key")),
		refreshSecret: []byte(env.GetEnv("JWT_REFRESH_SECRET", "dev-refresh-secret-key")),
		accessTTL:     durationEnv("JWT_EXPIRES", 15*time.Minute),
		refreshTTL:    durationEnv("JWT_REFRESH_EXPIRES", 7*24*time.Hour),
	}
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// IssueTokenPair signs a fresh access/refresh pair for the identity.
func (s *Service) IssueTokenPair(id Identity) (Pair, error) {
	access, err := s.sign(id, typeAccess, s.accessSecret, s.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.sign(id, typeRefresh, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken validates a bearer token and returns its identity.
func (s *Service) VerifyAccessToken(tokenStr string) (Identity, error) {
	return s.verify(tokenStr, typeAccess, s.accessSecret)
}

// RefreshTokenPair validates a refresh token and rotates the whole pair.
func (s *Service) RefreshTokenPair(refreshToken string) (Pair, error) {
	id, err := s.verify(refreshToken, typeRefresh, s.refreshSecret)
	if err != nil {
		return Pair{}, err
	}
	return s.IssueTokenPair(id)
}

func (s *Service) sign(id Identity, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: id.Email,
		Role:  id.Role,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) verify(tokenStr, wantType string, secret []byte) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Type != wantType {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}
