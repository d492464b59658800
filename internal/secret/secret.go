// Package secret seals data-source credentials before they are written to the
// database.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
	prefix    = "v1:"
)

// ErrSealed is returned when a sealed value cannot be opened.
var ErrSealed = errors.New("sealed value is corrupt or was sealed with another key")

// Box seals and opens values with a key derived from a passphrase.
type Box struct {
	key [keySize]byte
}

// NewBox derives the secretbox key from passphrase with HKDF-SHA256.
func NewBox(passphrase string) (*Box, error) {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return nil, fmt.Errorf("credential key is empty")
	}

	b := &Box{}
	r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("clientdash credentials"))
	if _, err := io.ReadFull(r, b.key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return b, nil
}

// Seal encrypts plaintext and returns a printable token.
func (b *Box) Seal(plaintext []byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], plaintext, &nonce, &b.key)
	return prefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (b *Box) Open(token string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return nil, ErrSealed
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrSealed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrSealed
	}
	return plain, nil
}
