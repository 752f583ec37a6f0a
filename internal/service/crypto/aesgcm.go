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

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt is returned for any malformed, truncated, or tampered
// ciphertext. Callers treat it as "no usable data" rather than a crash.
var ErrDecrypt = errors.New("ciphertext could not be decrypted")

const keySize = 32 // AES-256

// hkdfInfo binds derived keys to this use so the same secret can safely
// derive keys for other purposes later.
var hkdfInfo = []byte("benefitnav/payload-encryption/v1")

// AESGCMCipher encrypts payload documents with AES-256-GCM. The data key is
// derived from the configured secret via HKDF-SHA256, and ciphertexts are
// nonce-prefixed, base64-encoded opaque strings.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCMCipher derives the data key from secret and prepares the AEAD.
func NewAESGCMCipher(secret string) (*AESGCMCipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is required")
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (c *AESGCMCipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *AESGCMCipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecrypt
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrDecrypt
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
