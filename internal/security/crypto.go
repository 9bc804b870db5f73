package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of the salt in bytes.
	SaltSize = 16
	// HashSize is the size of the derived password hash in bytes.
	HashSize = 32
	// PasswordIterations is the number of PBKDF2 iterations. It is the same
	// for every account.
	PasswordIterations = 600000
)

// ErrInvalidInput is returned when a password or salt is empty.
var ErrInvalidInput = errors.New("invalid input")

var encoding = base64.StdEncoding

// GenerateSalt generates a cryptographically secure random salt, base64 encoded.
func GenerateSalt() (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encoding.EncodeToString(salt), nil
}

// DeriveKey derives a HashSize key from a password and raw salt using PBKDF2-SHA256.
func DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, PasswordIterations, HashSize, sha256.New)
}

// HashPassword derives the stored hash for password. The salt string's bytes
// feed PBKDF2 as they are stored, so any non-empty salt works and the same
// inputs always produce the same output.
func HashPassword(password, salt string) (string, error) {
	if password == "" || salt == "" {
		return "", ErrInvalidInput
	}
	return encoding.EncodeToString(DeriveKey([]byte(password), []byte(salt))), nil
}

// VerifyPassword reports whether password matches expectedHash under salt.
// The comparison runs in constant time. Malformed inputs never match.
func VerifyPassword(password, salt, expectedHash string) bool {
	expected, err := encoding.DecodeString(expectedHash)
	if err != nil || len(expected) == 0 {
		return false
	}
	computed, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	actual, err := encoding.DecodeString(computed)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

// Verifier checks a password against a stored salt and hash.
type Verifier interface {
	Verify(password, salt, hash string) (bool, error)
}

// PBKDF2Verifier is the default Verifier.
type PBKDF2Verifier struct{}

// Verify implements Verifier.
func (PBKDF2Verifier) Verify(password, salt, hash string) (bool, error) {
	return VerifyPassword(password, salt, hash), nil
}

// NewCredentials generates a salt and the matching hash for password.
func NewCredentials(password string) (hash, salt string, err error) {
	salt, err = GenerateSalt()
	if err != nil {
		return "", "", err
	}
	hash, err = HashPassword(password, salt)
	if err != nil {
		return "", "", err
	}
	return hash, salt, nil
}
