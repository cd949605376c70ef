package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/felixgeelhaar/signup/internal/domain"
	"github.com/felixgeelhaar/signup/internal/user"
)

// UserStore implements user.Store backed by SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite-backed user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

var _ user.Store = (*UserStore)(nil)

// Insert adds a user. A second row with the same email fails with
// domain.ErrDuplicateEmail.
func (s *UserStore) Insert(ctx context.Context, cred *domain.Credentials) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cred.ID.String(), cred.FullName, cred.Email, cred.PasswordHash,
		cred.CreatedAt.UTC(), cred.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by (normalized) email
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?`, email)
	return scanCredentials(row)
}

// FindByID retrieves a user by id
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Credentials, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, password_hash, created_at, updated_at
		FROM users WHERE id = ?`, id.String())
	return scanCredentials(row)
}

// Ping checks the database connection
func (s *UserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanCredentials(row *sql.Row) (*domain.Credentials, error) {
	var (
		cred domain.Credentials
		id   string
	)
	err := row.Scan(&id, &cred.FullName, &cred.Email, &cred.PasswordHash, &cred.CreatedAt, &cred.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	cred.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", id, err)
	}
	return &cred, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
