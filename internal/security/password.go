package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const DefaultCost = 10

// MaxPasswordBytes is the bcrypt input limit. Longer passwords are hashed
// and verified on their first MaxPasswordBytes bytes.
const MaxPasswordBytes = 72

var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher hashes passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	return &Hasher{cost: cost}, nil
}

func (h *Hasher) Cost() int {
	return h.cost
}

// Hash password hashes a plain text password with bcrypt.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword(truncate(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify compares a bcrypt hash with a plaintext password. Malformed hashes
// never verify.
func (h *Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain)) == nil
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > MaxPasswordBytes {
		b = b[:MaxPasswordBytes]
	}
	return b
}

// SecretsEqual compares two shared secrets in constant time. Both sides are
// digested first so the comparison does not leak length.
func SecretsEqual(got, want string) bool {
	g := sha256.Sum256([]byte(got))
	w := sha256.Sum256([]byte(want))

	return subtle.ConstantTimeCompare(g[:], w[:]) == 1
}
