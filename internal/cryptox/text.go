package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/ctxvault/internal/common"
)

const (
	// TextVersion is the only text envelope version this build produces.
	TextVersion = 1
	// TextPrefix is the tag every v1 text envelope starts with.
	TextPrefix = "enc:v1:"

	NonceSize = 12
	TagSize   = 16
)

var versionTag = regexp.MustCompile(`^enc:v([0-9]+):`)

// Codec encrypts and decrypts under one derived key. Deriving is expensive,
// so callers handling many fields should build one Codec per passphrase.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec derives the encryption key from passphrase.
func NewCodec(passphrase string) (*Codec, error) {
	key := DeriveKey(passphrase, EncryptionSalt)
	defer common.WipeByteArray(key)
	return newCodecFromKey(key)
}

func newCodecFromKey(key []byte) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

// EncryptString seals plaintext into a text envelope with a fresh nonce.
func (c *Codec) EncryptString(plaintext string) string {
	nonce := common.GenerateRandByteArray(NonceSize)
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	enc := base64.StdEncoding
	return TextPrefix + enc.EncodeToString(nonce) + ":" + enc.EncodeToString(tag) + ":" + enc.EncodeToString(ct)
}

// DecryptString opens a text envelope. Values without a version tag are
// legacy plaintext and are returned unchanged; use IsEncrypted or Reveal to
// tell the two apart.
func (c *Codec) DecryptString(value string) (string, error) {
	env, err := parseEnvelope(value)
	if err != nil {
		if errors.Is(err, ErrNotEncrypted) {
			return value, nil
		}
		return "", err
	}

	sealed := make([]byte, 0, len(env.ciphertext)+TagSize)
	sealed = append(sealed, env.ciphertext...)
	sealed = append(sealed, env.tag...)

	plaintext, err := c.aead.Open(nil, env.nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// Encrypt derives a key from passphrase and seals plaintext.
func Encrypt(plaintext, passphrase string) (string, error) {
	c, err := NewCodec(passphrase)
	if err != nil {
		return "", err
	}
	return c.EncryptString(plaintext), nil
}

// Decrypt derives a key from passphrase and opens value.
func Decrypt(value, passphrase string) (string, error) {
	c, err := NewCodec(passphrase)
	if err != nil {
		return "", err
	}
	return c.DecryptString(value)
}

// IsEncrypted reports whether value carries an envelope version tag. It says
// nothing about whether the rest of the envelope is well formed.
func IsEncrypted(value string) bool {
	return versionTag.MatchString(value)
}

// CheckEnvelope validates the structure of a text envelope without a key:
// known version, three base64 segments, nonce and tag of the right size.
// Values without a tag yield ErrNotEncrypted.
func CheckEnvelope(value string) error {
	_, err := parseEnvelope(value)
	return err
}

type envelope struct {
	nonce      []byte
	tag        []byte
	ciphertext []byte
}

func parseEnvelope(value string) (*envelope, error) {
	m := versionTag.FindStringSubmatch(value)
	if m == nil {
		return nil, ErrNotEncrypted
	}
	version, err := strconv.Atoi(m[1])
	if err != nil || version != TextVersion {
		return nil, fmt.Errorf("%w: v%s", ErrUnsupportedVersion, m[1])
	}

	parts := strings.Split(value[len(m[0]):], ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedEnvelope, len(parts))
	}

	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil || len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: bad nonce", ErrMalformedEnvelope)
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return nil, fmt.Errorf("%w: bad auth tag", ErrMalformedEnvelope)
	}
	ciphertext, err := enc.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrMalformedEnvelope)
	}

	return &envelope{nonce: nonce, tag: tag, ciphertext: ciphertext}, nil
}
