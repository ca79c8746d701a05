package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Algorithm names the AEAD used for sealed archive files.
const Algorithm = "XChaCha20-Poly1305"

// EncryptedSuffix is appended to the storage path of sealed files.
const EncryptedSuffix = ".enc"

var magic = []byte("ARCHENC1")

// ErrNotSealed is returned when Open is given data without the sealed-file header.
var ErrNotSealed = errors.New("data is not a sealed archive file")

// Sealer encrypts and decrypts whole files with a key derived from a configured secret.
type Sealer struct {
	key []byte
}

// NewSealer derives a 256-bit key from secret with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte("archive-file-encryption"))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext. additional binds the ciphertext to a context such as the document id.
func (s *Sealer) Seal(plaintext, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, len(magic)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, additional), nil
}

// Open decrypts data produced by Seal with the same additional data.
func (s *Sealer) Open(sealed, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if !IsSealed(sealed) || len(sealed) < len(magic)+aead.NonceSize()+aead.Overhead() {
		return nil, ErrNotSealed
	}
	body := sealed[len(magic):]
	nonce, ciphertext := body[:aead.NonceSize()], body[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// IsSealed reports whether data carries the sealed-file header.
func IsSealed(data []byte) bool {
	if len(data) < len(magic) {
		return false
	}
	return string(data[:len(magic)]) == string(magic)
}
