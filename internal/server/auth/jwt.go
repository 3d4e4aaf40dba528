package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are the claims of an admin session token.
type AdminClaims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner"`
}

// GenerateAdminToken issues an HS256 admin session for owner.
func GenerateAdminToken(ownerID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		OwnerID: ownerID,
	})

	return token.SignedString(secretKey)
}

// OwnerFromAdminToken verifies an admin session and returns its owner.
func OwnerFromAdminToken(tokenString string, secretKey []byte) (string, error) {
	claims := &AdminClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject != "admin" {
		return "", common.ErrInvalidToken
	}

	return claims.OwnerID, nil
}
