// Package crypto seals OAuth tokens at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const keySize = 32

var (
	errEmptyKey   = errors.New("encryption key is empty")
	errEmptyInput = errors.New("plaintext is empty")
	errOpen       = errors.New("decryption failed: authentication or integrity check failed")
)

// Encryptor is an authenticated cipher for short secrets.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESEncryptor produces nonce followed by the sealed box.
type AESEncryptor struct {
	gcm cipher.AEAD
}

// NewAESEncryptor takes the key as standard base64, e.g. the output of
// `openssl rand -base64 32`.
func NewAESEncryptor(encodedKey string) (*AESEncryptor, error) {
	if encodedKey == "" {
		return nil, errEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	switch {
	case err != nil:
		return nil, fmt.Errorf("invalid encryption key: base64 decode failed: %w", err)
	case len(raw) != keySize:
		return nil, fmt.Errorf("invalid encryption key: must be %d bytes, got %d", keySize, len(raw))
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESEncryptor{gcm: gcm}, nil
}

// FromKey is NewAESEncryptor with an empty key meaning "no encryption":
// it returns a nil Encryptor and no error.
func FromKey(encodedKey string) (Encryptor, error) {
	if encodedKey == "" {
		return nil, nil
	}
	return NewAESEncryptor(encodedKey)
}

func (e *AESEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, errEmptyInput
	}
	ns := e.gcm.NonceSize()
	out := make([]byte, ns, ns+len(plaintext)+e.gcm.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return e.gcm.Seal(out, out[:ns], plaintext, nil), nil
}

func (e *AESEncryptor) Decrypt(sealed []byte) ([]byte, error) {
	ns := e.gcm.NonceSize()
	if len(sealed) < ns+e.gcm.Overhead() {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(sealed))
	}
	nonce, box := sealed[:ns], sealed[ns:]
	plain, err := e.gcm.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, errOpen
	}
	return plain, nil
}

// EncryptString is Encrypt for text columns: the result is base64 and an
// empty input stays empty.
func EncryptString(enc Encryptor, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	sealed, err := enc.Encrypt([]byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString undoes EncryptString.
func DecryptString(enc Encryptor, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	sealed, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("base64 decode failed: %w", err)
	}
	plain, err := enc.Decrypt(sealed)
	return string(plain), err
}
