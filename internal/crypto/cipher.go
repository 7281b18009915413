// Package crypto provides AES-256-GCM sealing for OAuth tokens at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// NonceSize is the GCM standard nonce size (12 bytes).
	NonceSize = 12
	// KeySize is the required key length for AES-256-GCM (32 bytes).
	KeySize = 32
)

var (
	ErrInvalidKeySize = fmt.Errorf("key must be exactly %d bytes", KeySize)
	// ErrAuthenticationFailed means the blob was tampered with or sealed
	// under a different key. Records carrying such a blob are unusable.
	ErrAuthenticationFailed = errors.New("sealed value failed authentication")
)

// DeriveKey hashes an arbitrary-length secret down to a 32-byte AES key.
// The same secret always yields the same key, so sealed records survive
// process restarts.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Cipher seals and unseals secret strings. The AEAD is constructed once at
// startup and shared; it is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key (see DeriveKey).
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts one plaintext value. The nonce is drawn fresh from
// crypto/rand on every call and prepended to the ciphertext, so the returned
// blob is self-contained: base64url(nonce || ciphertext || tag).
func (c *Cipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a blob produced by Seal. Returns ErrAuthenticationFailed
// if the blob was modified or sealed under a different key; it never returns
// garbage plaintext.
func (c *Cipher) Unseal(sealed string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrAuthenticationFailed)
	}
	if len(raw) < NonceSize {
		return "", fmt.Errorf("%w: blob too short", ErrAuthenticationFailed)
	}

	nonce, ciphertext := raw[:NonceSize], raw[NonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}
