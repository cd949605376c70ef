package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a registered user without any credential material
type User struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials is a User together with its password hash.
// Only the user directory and the login flow ever hold one.
type Credentials struct {
	User
	PasswordHash string
}

// PublicUser is the user shape returned to API clients
type PublicUser struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Public strips the user down to the fields clients are allowed to see
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID.String(),
		FullName: u.FullName,
		Email:    u.Email,
	}
}

// NormalizeEmail returns the canonical lookup form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
