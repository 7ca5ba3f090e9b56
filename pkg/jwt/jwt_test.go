package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

const (
	testSecret = "test-secret"
	testIssuer = "clinxchat-test"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateAccessToken(userID, "user@example.com", testSecret, testIssuer, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %v, want %v", claims.UserID, userID)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "user@example.com", testSecret, testIssuer, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateAccessToken(token, "other-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken(uuid.New(), "user@example.com", testSecret, testIssuer, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateAccessToken(token, testSecret); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRefreshTokenNotValidAsAccess(t *testing.T) {
	userID := uuid.New()
	refresh, err := GenerateRefreshToken(userID, testSecret, testIssuer, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateRefreshToken(refresh, testSecret)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("subject = %q", claims.Subject)
	}

	// Parsing a refresh token through the access path yields a zero user id,
	// which no authenticated route should ever accept.
	access, err := ValidateAccessToken(refresh, testSecret)
	if err == nil && access.UserID != uuid.Nil {
		t.Fatalf("refresh token produced a usable access identity %v", access.UserID)
	}
}

func TestGarbageTokenInvalid(t *testing.T) {
	if _, err := ValidateAccessToken("not-a-token", testSecret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
