package cryptox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ctxvault/internal/common"
)

const (
	// BlobVersion is the binary envelope version this build produces.
	BlobVersion byte = 1
	// BlobHeaderSize is magic + version + nonce + tag.
	BlobHeaderSize = len(blobMagic) + 1 + NonceSize + TagSize
	// BlobMediaType is the media type of the data-URL wrapping a blob.
	BlobMediaType = "application/x-ctxe"

	blobMagic = "CTXE"
)

// EncryptBlob seals data into the binary envelope:
// "CTXE" | version | nonce(12) | tag(16) | ciphertext.
func (c *Codec) EncryptBlob(data []byte) []byte {
	nonce := common.GenerateRandByteArray(NonceSize)
	sealed := c.aead.Seal(nil, nonce, data, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, BlobHeaderSize+len(ct))
	out = append(out, blobMagic...)
	out = append(out, BlobVersion)
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ct...)
	return out
}

// DecryptBlob opens a binary envelope.
func (c *Codec) DecryptBlob(blob []byte) ([]byte, error) {
	if err := CheckBlob(blob); err != nil {
		return nil, err
	}

	nonce := blob[5 : 5+NonceSize]
	tag := blob[5+NonceSize : BlobHeaderSize]
	ct := blob[BlobHeaderSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// IsEncryptedBlob reports whether blob starts with the envelope magic.
func IsEncryptedBlob(blob []byte) bool {
	return bytes.HasPrefix(blob, []byte(blobMagic))
}

// CheckBlob validates the binary envelope header without a key.
func CheckBlob(blob []byte) error {
	if !IsEncryptedBlob(blob) {
		return ErrNotEncrypted
	}
	if len(blob) < BlobHeaderSize {
		return fmt.Errorf("%w: blob shorter than header", ErrMalformedEnvelope)
	}
	if blob[len(blobMagic)] != BlobVersion {
		return fmt.Errorf("%w: blob v%d", ErrUnsupportedVersion, blob[len(blobMagic)])
	}
	return nil
}

// EncodeBlobDataURL wraps an envelope for JSON transport.
func EncodeBlobDataURL(blob []byte) string {
	return "data:" + BlobMediaType + ";base64," + base64.StdEncoding.EncodeToString(blob)
}

// DecodeBlobDataURL unwraps a data-URL produced by EncodeBlobDataURL. Any
// base64 data-URL is accepted; CheckBlob decides whether the payload is an
// envelope.
func DecodeBlobDataURL(s string) ([]byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data URL", ErrMalformedEnvelope)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data URL is not base64", ErrMalformedEnvelope)
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return b, nil
}
