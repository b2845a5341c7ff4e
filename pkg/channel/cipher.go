// Package channel implements the encrypted device link: AES-256-GCM over a
// pre-shared key, framed as base64(nonce || ciphertext || tag).
package channel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

var (
	// ErrTransport covers envelopes that cannot be framed: bad base64 or a blob
	// too short to hold a nonce and a tag.
	ErrTransport = errors.New("malformed encrypted envelope")
	// ErrAuthentication is returned when the GCM tag does not verify. It does
	// not say whether the key or the ciphertext was wrong.
	ErrAuthentication = errors.New("envelope authentication failed")
)

type Cipher struct {
	aead cipher.AEAD
}

func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, err
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(wire string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(wire))
	if err != nil {
		return nil, ErrTransport
	}
	if len(blob) < NonceSize+TagSize {
		return nil, ErrTransport
	}

	plaintext, err := c.aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
