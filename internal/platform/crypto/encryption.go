// Package crypto seals clinical free text (review notes, improvement plans)
// with XChaCha20-Poly1305 before it reaches the database.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealVersion prefixes every sealed value so the format can change later.
const sealVersion byte = 1

var (
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrUnknownSealVersion = errors.New("unknown seal version")
)

type Service struct {
	aead cipher.AEAD
}

// New loads a 32-byte key given as hex, base64 or raw text. An empty key
// returns an unconfigured Service.
func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be %d bytes after decoding, got %d", chacha20poly1305.KeySize, len(decoded))
	}
	aead, err := chacha20poly1305.NewX(decoded)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

// Configured reports whether a data key is loaded. A nil or unconfigured
// Service passes data through unchanged.
func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

// Encrypt returns version || nonce || ciphertext.
func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonceSize := s.aead.NonceSize()
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plain)+s.aead.Overhead())
	out[0] = sealVersion
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, err
	}
	return s.aead.Seal(out, out[1:], plain, out[:1]), nil
}

func (s *Service) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	nonceSize := s.aead.NonceSize()
	if len(sealed) < 1+nonceSize+s.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	if sealed[0] != sealVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSealVersion, sealed[0])
	}
	return s.aead.Open(nil, sealed[1:1+nonceSize], sealed[1+nonceSize:], sealed[:1])
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(value []byte) (string, error) {
	plain, err := s.Decrypt(value)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func decodeKey(raw string) []byte {
	if len(raw) == hex.EncodedLen(chacha20poly1305.KeySize) {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding} {
		if decoded, err := enc.DecodeString(raw); err == nil && len(decoded) == chacha20poly1305.KeySize {
			return decoded
		}
	}
	return []byte(raw)
}
