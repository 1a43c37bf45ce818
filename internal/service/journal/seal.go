package journal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	KeyEnv = "WELLNESS_JOURNAL_KEY"

	sealedPrefix = "gcm1:"
)

var errInvalidCiphertext = errors.New("invalid journal ciphertext")

// Sealer encrypts chat text at rest. A nil *Sealer passes text through.
type Sealer struct {
	aead cipher.AEAD
}

// SealerFromEnv builds a Sealer from WELLNESS_JOURNAL_KEY. An unset key yields
// a nil Sealer and no error.
func SealerFromEnv() (*Sealer, error) {
	raw := strings.TrimSpace(os.Getenv(KeyEnv))
	if raw == "" {
		return nil, nil
	}
	return NewSealer(raw)
}

// NewSealer accepts a 32-byte raw key or its standard base64 form.
func NewSealer(rawKey string) (*Sealer, error) {
	key, err := decodeKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyEnv, err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length %d, want 32", len(key))
	}
	return key, nil
}

// Seal returns the prefixed ciphertext of plain.
func (s *Sealer) Seal(plain string) (string, error) {
	if s == nil {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values written before sealing was enabled come back verbatim.
func (s *Sealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if s == nil {
		return "", fmt.Errorf("%w: %s not set", errInvalidCiphertext, KeyEnv)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", errInvalidCiphertext
	}
	ns := s.aead.NonceSize()
	if len(data) < ns {
		return "", errInvalidCiphertext
	}
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", errInvalidCiphertext
	}
	return string(plain), nil
}

func (s *Sealer) sealPair(a, b string) (string, string, error) {
	sa, err := s.Seal(a)
	if err != nil {
		return "", "", err
	}
	sb, err := s.Seal(b)
	if err != nil {
		return "", "", err
	}
	return sa, sb, nil
}

func (s *Sealer) openPair(a, b string) (string, string, error) {
	oa, err := s.Open(a)
	if err != nil {
		return "", "", err
	}
	ob, err := s.Open(b)
	if err != nil {
		return "", "", err
	}
	return oa, ob, nil
}
