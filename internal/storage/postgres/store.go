// Package postgres is the PostgreSQL user store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/signup/internal/domain"
	"github.com/felixgeelhaar/signup/internal/user"
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

// UserStore implements user.Store using PostgreSQL
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL user store
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ user.Store = (*UserStore)(nil)

// Connect creates a connection pool and verifies it with a ping
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Insert inserts a new user
func (s *UserStore) Insert(ctx context.Context, cred *domain.Credentials) error {
	query := `
		INSERT INTO users (id, full_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		cred.ID, cred.FullName, cred.Email, cred.PasswordHash, cred.CreatedAt, cred.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	query := `
		SELECT id, full_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	return s.queryOne(ctx, query, email)
}

// FindByID retrieves a user by ID
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Credentials, error) {
	query := `
		SELECT id, full_name, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`
	return s.queryOne(ctx, query, id)
}

// Ping checks the pool can reach the database
func (s *UserStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *UserStore) queryOne(ctx context.Context, query string, arg any) (*domain.Credentials, error) {
	cred := &domain.Credentials{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&cred.ID, &cred.FullName, &cred.Email, &cred.PasswordHash, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return cred, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
