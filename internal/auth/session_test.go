package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestSessionReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{"sub": "creator-7", "exp": exp.Unix()})

	s := NewSession()
	if err := s.Init("Bearer " + tok); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.UserID() != "creator-7" {
		t.Fatalf("UserID: want=creator-7 got=%q", s.UserID())
	}
	if !s.ExpiresAt().Equal(exp) {
		t.Fatalf("ExpiresAt: want=%v got=%v", exp, s.ExpiresAt())
	}
	got, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != tok {
		t.Fatalf("Token: bearer prefix not stripped")
	}
}

func TestSessionOpaqueToken(t *testing.T) {
	s := NewSession()
	if err := s.Init("opaque-token"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if s.UserID() != "" {
		t.Fatalf("UserID: want empty got=%q", s.UserID())
	}
	if _, err := s.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}
}

func TestSessionExpiredAndCleared(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})
	s := NewSession()
	if err := s.Init(tok); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := s.Token(context.Background()); !errors.Is(err, ErrExpired) {
		t.Fatalf("want ErrExpired got=%v", err)
	}

	s.Clear()
	if _, err := s.Token(context.Background()); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("want ErrNoCredential got=%v", err)
	}
	if err := s.Init("  "); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("Init(blank): want ErrNoCredential got=%v", err)
	}
}
