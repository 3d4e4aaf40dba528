package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/ctxvault/internal/common"
)

const (
	// TokenPrefix starts every access token.
	TokenPrefix = "ctx_"
	// DisplayPrefixLen is how much of a token may be logged or shown.
	DisplayPrefixLen = 12

	tokenSecretBytes = 32
)

var tokenPattern = regexp.MustCompile(`^ctx_[0-9a-f]{64}$`)

// GenerateToken returns a new raw token, its display prefix and its hash.
// The raw token is shown once and never stored.
func GenerateToken() (raw, prefix, hash string, err error) {
	secret, err := common.MakeRandHexString(tokenSecretBytes)
	if err != nil {
		return "", "", "", err
	}
	raw = TokenPrefix + secret
	return raw, DisplayPrefix(raw), HashToken(raw), nil
}

// WellFormed reports whether raw has the access token shape.
func WellFormed(raw string) bool {
	return tokenPattern.MatchString(raw)
}

// HashToken is the lookup key stored for a token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix is the part of a token that may be logged.
func DisplayPrefix(raw string) string {
	if len(raw) <= DisplayPrefixLen {
		return raw
	}
	return raw[:DisplayPrefixLen]
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if len(header) < len(common.BearerPrefix) || !strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(common.BearerPrefix):])
	return tok, tok != ""
}
