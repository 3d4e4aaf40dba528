// Package blindindex computes deterministic keyed hashes of normalized
// plaintext so the server can answer exact-match queries over encrypted
// columns. Indexes carry no ordering and cannot be reversed.
package blindindex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/ctxvault/internal/common"
	"github.com/dmitrijs2005/ctxvault/internal/cryptox"
)

// Size is the length of an index in hex characters.
const Size = 64

var indexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Indexer hashes values under the blind-index key derived from a passphrase.
// The key is independent of the encryption key.
type Indexer struct {
	key []byte
}

// New derives the blind-index key from passphrase.
func New(passphrase string) *Indexer {
	return &Indexer{key: cryptox.DeriveKey(passphrase, cryptox.BlindIndexSalt)}
}

// Index normalizes value with n and returns its lowercase hex HMAC-SHA256.
// A value that normalizes to "" has no index and yields "".
func (x *Indexer) Index(value string, n Normalizer) string {
	v := n(value)
	if v == "" {
		return ""
	}
	mac := hmac.New(sha256.New, x.key)
	mac.Write([]byte(v))
	return hex.EncodeToString(mac.Sum(nil))
}

// Phone indexes a phone number.
func (x *Indexer) Phone(value string) string { return x.Index(value, NormalizePhone) }

// Text indexes a free-text or name value.
func (x *Indexer) Text(value string) string { return x.Index(value, NormalizeText) }

// Names holds the indexes derived from one composite name.
type Names struct {
	Full  string `json:"fullNameIndex"`
	First string `json:"firstNameIndex"`
	Last  string `json:"lastNameIndex"`
}

// NameIndexes splits name on whitespace and indexes the whole name, its
// first word and, when there is more than one word, its last word.
func (x *Indexer) NameIndexes(name string) Names {
	words := strings.Fields(name)
	if len(words) == 0 {
		return Names{}
	}
	n := Names{
		Full:  x.Text(name),
		First: x.Text(words[0]),
	}
	if len(words) > 1 {
		n.Last = x.Text(words[len(words)-1])
	}
	return n
}

// Wipe clears the key. The Indexer is unusable afterwards.
func (x *Indexer) Wipe() {
	common.WipeByteArray(x.key)
}

// Valid reports whether s looks like an index: 64 lowercase hex characters.
func Valid(s string) bool {
	return indexPattern.MatchString(s)
}
