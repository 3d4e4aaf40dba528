package cryptox

import "errors"

var (
	// ErrMalformedEnvelope means the value carries the version tag but its
	// structure is wrong. It is returned before any cryptographic work.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrUnsupportedVersion means the version tag names an unknown scheme.
	ErrUnsupportedVersion = errors.New("unsupported envelope version")
	// ErrDecryptFailed means authentication failed: wrong passphrase or
	// tampered ciphertext.
	ErrDecryptFailed = errors.New("cannot decrypt")
	// ErrNotEncrypted means the value has no version tag at all.
	ErrNotEncrypted = errors.New("not encrypted")
)
