package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// ValidatePassword enforces the length policy in characters, not bytes.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return domain.ErrWeakPassword
	}
	return nil
}

// bcrypt only reads the first 72 bytes, and x/crypto rejects longer input.
// Passwords are digested first so every accepted length is significant.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword returns false for a mismatch and an error only for a malformed hash.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// EqualizeTiming spends the same bcrypt work as a real comparison. Used when
// the account does not exist so response time does not reveal it.
func EqualizeTiming(password string) {
	dummyOnce.Do(func() {
		h, _ := bcrypt.GenerateFromPassword(prehash("carepoint-dummy-password"), bcrypt.DefaultCost)
		dummyHash = string(h)
	})
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), prehash(password))
}
