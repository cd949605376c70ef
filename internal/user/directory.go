// Package user is the user directory: lookup and creation of accounts keyed
// by normalized email, backed by a pluggable Store.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/signup/internal/domain"
	"github.com/felixgeelhaar/signup/internal/password"
)

// Store defines the persistence operations the directory needs.
// Implementations return domain.ErrUserNotFound for missing rows and
// domain.ErrDuplicateEmail when the unique email constraint rejects an insert.
type Store interface {
	Insert(ctx context.Context, cred *domain.Credentials) error
	FindByEmail(ctx context.Context, email string) (*domain.Credentials, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Credentials, error)
	Ping(ctx context.Context) error
}

// NewUser contains the data needed to create an account
type NewUser struct {
	FullName string
	Email    string
	Password string
}

// Directory handles user lookup and creation
type Directory struct {
	store  Store
	hasher password.Hasher
	now    func() time.Time
}

// NewDirectory creates a new user directory
func NewDirectory(store Store, hasher password.Hasher) *Directory {
	return &Directory{
		store:  store,
		hasher: hasher,
		now:    time.Now,
	}
}

// SetClock overrides the time source used for createdAt/updatedAt.
func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

// FindByEmail looks a user up by email, case-insensitively
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	cred, err := d.store.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

// FindByID looks a user up by id
func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	cred, err := d.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

// FindWithCredentials is FindByEmail including the password hash. Login only.
func (d *Directory) FindWithCredentials(ctx context.Context, email string) (*domain.Credentials, error) {
	return d.store.FindByEmail(ctx, domain.NormalizeEmail(email))
}

// Create registers a new user.
// The existence check is only a fast path: two concurrent signups can both pass
// it, and the store's unique constraint then rejects the later insert with
// domain.ErrDuplicateEmail.
func (d *Directory) Create(ctx context.Context, nu NewUser) (*domain.User, error) {
	email := domain.NormalizeEmail(nu.Email)

	_, err := d.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrDuplicateEmail
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := d.hasher.Hash(nu.Password)
	if err != nil {
		return nil, err
	}

	now := d.now().UTC()
	cred := &domain.Credentials{
		User: domain.User{
			ID:        uuid.New(),
			FullName:  strings.TrimSpace(nu.FullName),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}

	if err := d.store.Insert(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return &cred.User, nil
}

// Ping checks that the underlying store is reachable
func (d *Directory) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}
