// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 12

// MaxLength is the longest password bcrypt will consider, in bytes.
const MaxLength = 72

// ErrPasswordTooLong is returned by Hash for inputs bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes passwords and checks candidates against stored digests
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, digest string) (bool, error)
}

// Bcrypt implements Hasher with a fixed cost and a random salt per call
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher, clamping cost to the range bcrypt accepts
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Bcrypt{cost: cost}
}

// Cost returns the configured work factor
func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash returns a salted bcrypt digest of password
func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) > MaxLength {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether password matches digest.
// A mismatch is (false, nil); an error means the digest itself is unusable.
func (b *Bcrypt) Compare(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("compare password: %w", err)
}

var _ Hasher = (*Bcrypt)(nil)
