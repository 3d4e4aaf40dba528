package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestAdminToken_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateAdminToken("owner-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	owner, err := OwnerFromAdminToken(tok, secret)
	if err != nil {
		t.Fatalf("OwnerFromAdminToken error: %v", err)
	}
	if owner != "owner-1" {
		t.Fatalf("owner mismatch: got %q want %q", owner, "owner-1")
	}
}

func TestAdminToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateAdminToken("o", secret, -1*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	_, err = OwnerFromAdminToken(tok, secret)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestAdminToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateAdminToken("o", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken error: %v", err)
	}

	_, err = OwnerFromAdminToken(tok, []byte("wrong-secret"))
	if err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestAdminToken_WrongSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "device",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := OwnerFromAdminToken(tok, secret); err != common.ErrInvalidToken {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestAdminToken_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := OwnerFromAdminToken("not.a.jwt", []byte("k")); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
