// Package auth implements the signup, login and token verification flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/felixgeelhaar/signup/internal/domain"
	"github.com/felixgeelhaar/signup/internal/events"
	"github.com/felixgeelhaar/signup/internal/password"
	"github.com/felixgeelhaar/signup/internal/token"
	"github.com/felixgeelhaar/signup/internal/user"
)

// Directory is the subset of the user directory the auth flow needs
type Directory interface {
	Create(ctx context.Context, nu user.NewUser) (*domain.User, error)
	FindWithCredentials(ctx context.Context, email string) (*domain.Credentials, error)
}

// TokenManager issues and verifies session tokens
type TokenManager interface {
	Issue(id token.Identity) (string, error)
	Verify(tokenString string) (*token.Claims, error)
}

// SignupRequest contains signup data
type SignupRequest struct {
	FullName  string
	Email     string
	Password  string
	RequestID string
}

// LoginRequest contains login data
type LoginRequest struct {
	Email     string
	Password  string
	RequestID string
}

// Result is the outcome of a successful signup or login
type Result struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Token   string             `json:"token,omitempty"`
	User    *domain.PublicUser `json:"user,omitempty"`
}

// Service handles authentication operations
type Service struct {
	users     Directory
	hasher    password.Hasher
	tokens    TokenManager
	publisher events.Publisher
	logger    *slog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService creates a new auth service
func NewService(users Directory, hasher password.Hasher, tokens TokenManager, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
	}
}

// Signup creates a new account and issues a token for it
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Result, error) {
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, newFailure(KindValidation, MsgValidationFailed, domain.ErrValidation)
	}

	u, err := s.users.Create(ctx, user.NewUser{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return nil, newFailure(KindConflict, MsgDuplicateEmail, err)
	}
	if errors.Is(err, password.ErrPasswordTooLong) {
		return nil, newFailure(KindValidation, MsgValidationFailed, err)
	}
	if err != nil {
		return nil, newFailure(KindInternal, MsgSignupFailed, err)
	}

	tok, err := s.tokens.Issue(token.Identity{UserID: u.ID.String(), Email: u.Email})
	if err != nil {
		return nil, newFailure(KindInternal, MsgSignupFailed, fmt.Errorf("issue token: %w", err))
	}

	s.publish(ctx, events.TypeUserSignedUp, u, req.RequestID)

	s.logger.Info("user signed up", "user_id", u.ID, "request_id", req.RequestID)

	return &Result{
		Success: true,
		Message: MsgSignupSuccess,
		Token:   tok,
		User:    u.Public(),
	}, nil
}

// Login authenticates a user by email and password.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Result, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, newFailure(KindValidation, MsgValidationFailed, domain.ErrValidation)
	}

	cred, err := s.users.FindWithCredentials(ctx, req.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.burnCompare(req.Password)
		return nil, newFailure(KindInvalidCredentials, MsgInvalidCredentials, domain.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, newFailure(KindInternal, MsgLoginFailed, err)
	}

	ok, err := s.hasher.Compare(req.Password, cred.PasswordHash)
	if err != nil {
		return nil, newFailure(KindInternal, MsgLoginFailed, err)
	}
	if !ok {
		return nil, newFailure(KindInvalidCredentials, MsgInvalidCredentials, domain.ErrInvalidCredentials)
	}

	tok, err := s.tokens.Issue(token.Identity{UserID: cred.ID.String(), Email: cred.Email})
	if err != nil {
		return nil, newFailure(KindInternal, MsgLoginFailed, fmt.Errorf("issue token: %w", err))
	}

	s.publish(ctx, events.TypeUserLoggedIn, &cred.User, req.RequestID)

	return &Result{
		Success: true,
		Message: MsgLoginSuccess,
		Token:   tok,
		User:    cred.User.Public(),
	}, nil
}

// Verify checks a session token and returns its claims.
// Claims are returned as issued; the user record is not re-read.
func (s *Service) Verify(_ context.Context, tokenString string) (*token.Claims, error) {
	if tokenString == "" {
		return nil, newFailure(KindUnauthenticated, MsgInvalidToken, domain.ErrUnauthenticated)
	}

	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil, newFailure(KindUnauthenticated, MsgInvalidToken, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err))
	}
	return claims, nil
}

// burnCompare runs a compare against a throwaway digest so the unknown-email
// path costs roughly the same as a wrong password.
func (s *Service) burnCompare(plain string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("signup-dummy-password")
		if err != nil {
			s.logger.Warn("failed to prepare dummy digest", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest == "" {
		return
	}
	_, _ = s.hasher.Compare(plain, s.dummyDigest)
}

func (s *Service) publish(ctx context.Context, eventType string, u *domain.User, requestID string) {
	event := events.NewEvent(eventType, u.ID.String(), u.Email)
	event.RequestID = requestID

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish auth event",
			"type", eventType,
			"user_id", u.ID,
			"error", err,
		)
	}
}
