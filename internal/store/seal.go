package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	sealedPrefix     = "sealed:v1:"
	pbkdf2Iterations = 100_000
	saltSize         = 16
	keySize          = 32
)

// ErrSealed is returned when a stored secret is sealed but the store was
// opened without a passphrase, or with the wrong one.
var ErrSealed = errors.New("store: secret is sealed; set the passphrase used to store it")

// Sealer encrypts secrets at rest with AES-256-GCM under a key derived from
// a passphrase with PBKDF2-SHA256.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(passphrase string, salt []byte) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("store: empty passphrase")
	}
	if len(salt) < saltSize {
		return nil, fmt.Errorf("store: salt must be at least %d bytes", saltSize)
	}
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("store: creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("store: creating GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("store: generating salt: %w", err)
	}
	return salt, nil
}

// Seal returns the stored form of plaintext. A nil Sealer stores plaintext
// unchanged.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil {
		return plaintext, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("store: generating nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values stored before sealing was enabled pass through.
func (s *Sealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if s == nil {
		return "", ErrSealed
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("store: decoding sealed secret: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", errors.New("store: sealed secret too short")
	}
	plaintext, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", ErrSealed
	}
	return string(plaintext), nil
}

func isSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}
