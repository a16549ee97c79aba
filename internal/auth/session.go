package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoCredential = errors.New("no access credential")
	ErrExpired      = errors.New("access credential expired")
)

// Session holds the access credential used for every Course Repository call.
// Token refresh and login belong to the surrounding application.
type Session struct {
	mu        sync.RWMutex
	token     string
	userID    string
	expiresAt time.Time

	now func() time.Time
}

func NewSession() *Session {
	return &Session{now: time.Now}
}

// Init stores token. JWT claims are read without verifying the signature;
// the API is the verifier. Opaque tokens are accepted as-is.
func (s *Session) Init(token string) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return ErrNoCredential
	}

	var (
		userID    string
		expiresAt time.Time
	)
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			userID = sub
		} else if v, ok := claims["userId"].(string); ok {
			userID = v
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time
		}
	}

	s.mu.Lock()
	s.token = token
	s.userID = userID
	s.expiresAt = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.userID = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// Token returns the current credential.
func (s *Session) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoCredential
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", ErrExpired
	}
	return s.token, nil
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}
