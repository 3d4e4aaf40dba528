// Package cryptox implements the client-side encryption scheme: a
// passphrase-derived AES-256-GCM key, the "enc:v1:" text envelope used for
// JSON string fields and the "CTXE" binary envelope used for blobs.
//
// The server never holds a passphrase. It only uses the structural checks
// (CheckEnvelope, CheckBlob) to refuse plaintext where ciphertext is required.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2-HMAC-SHA256 work factor.
	KDFIterations = 100_000
	// KeySize is the derived key length (AES-256).
	KeySize = 32
)

// The salts are public and fixed. Secrecy comes from the passphrase alone.
// The two salts differ so the encryption key and the blind-index key are
// independent.
var (
	EncryptionSalt = []byte("ctxvault/encryption/v1")
	BlindIndexSalt = []byte("ctxvault/blind-index/v1")
)

// DeriveKey stretches passphrase into a KeySize key under salt.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, KDFIterations, KeySize, sha256.New)
}
