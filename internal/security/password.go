// Package security covers agent authentication: password hashing, login
// session tokens, and account creation.
package security

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/oneweb/helpdesk-chat/internal/domain"
	"github.com/oneweb/helpdesk-chat/internal/storage"
)

const (
	pbkdf2Rounds = 10000
	saltBytes    = 32
)

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	case "sha512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("security: unsupported hash algorithm %q", algorithm)
	}
}

func derive(password, algorithm, salt string) (string, error) {
	h, err := hashFunc(algorithm)
	if err != nil {
		return "", err
	}
	// Key length follows the digest size, matching pbkdf2_hmac's default
	// dklen (20 for sha1, 32 for sha256, 64 for sha512).
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Rounds, h().Size(), h)
	return hex.EncodeToString(key), nil
}

// HashPassword derives a PBKDF2 hash of the password with a random salt.
// The result embeds the algorithm and salt: "algorithm$salt$hex".
func HashPassword(password, algorithm string) (string, error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("security: salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	derived, err := derive(password, algorithm, salt)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{algorithm, salt, derived}, "$"), nil
}

// ValidatePassword checks a password against a hash produced by
// HashPassword. Malformed hashes and unknown algorithms validate to false;
// the comparison is constant-time.
func ValidatePassword(pwHash, password string) bool {
	parts := strings.Split(pwHash, "$")
	if len(parts) != 3 {
		return false
	}
	algorithm, salt, want := parts[0], parts[1], parts[2]

	got, err := derive(password, algorithm, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// CreateUser hashes the plain password and persists a new agent account.
func CreateUser(ctx context.Context, users storage.UserRepository, name, login, password, algorithm string) (*domain.User, error) {
	pwHash, err := HashPassword(password, algorithm)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:           domain.NewID(),
		Name:         name,
		Login:        login,
		PasswordHash: pwHash,
	}
	if err := users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("security: save user: %w", err)
	}
	return u, nil
}
