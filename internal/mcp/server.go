// Package mcp exposes read-only operator tools for the auth service over the
// Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/signup/internal/domain"
	"github.com/felixgeelhaar/signup/internal/token"
)

// Tokens is the token functionality the tools need
type Tokens interface {
	Verify(tokenString string) (*token.Claims, error)
	Decode(tokenString string) (*token.Claims, bool)
}

// Users looks up accounts by email or id
type Users interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Server wraps the MCP server with the introspection tools
type Server struct {
	mcpServer *server.Server
	tokens    Tokens
	users     Users
}

// Config contains configuration for the MCP server
type Config struct {
	Version string
	Tokens  Tokens
	Users   Users
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		tokens: cfg.Tokens,
		users:  cfg.Users,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "signup",
		Version: version,
	}, server.WithInstructions(`
Read-only introspection for the signup auth service.

Available tools:
- inspect_token: Decode a token payload without checking it
- verify_token: Check a token's signature and expiry
- lookup_user: Find a registered user by email or id
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("inspect_token").
		Description("Decode a token payload WITHOUT verifying its signature or expiry.").
		Handler(s.handleInspect)

	s.mcpServer.Tool("verify_token").
		Description("Verify a token and return its claims when valid.").
		Handler(s.handleVerify)

	s.mcpServer.Tool("lookup_user").
		Description("Look up a registered user by email or id. Returns public fields only.").
		Handler(s.handleLookup)
}

type TokenInput struct {
	Token string `json:"token" jsonschema:"description=Bearer token without the Bearer prefix"`
}

type ClaimsOutput struct {
	Verified  bool   `json:"verified"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Expired   bool   `json:"expired"`
	Reason    string `json:"reason,omitempty"`
}

type LookupInput struct {
	Email string `json:"email,omitempty" jsonschema:"description=Email address, matched case-insensitively"`
	ID    string `json:"id,omitempty" jsonschema:"description=User id (UUID); used when email is empty"`
}

type LookupOutput struct {
	Found bool               `json:"found"`
	User  *domain.PublicUser `json:"user,omitempty"`
}

func (s *Server) handleInspect(_ context.Context, input TokenInput) (ClaimsOutput, error) {
	claims, ok := s.tokens.Decode(strings.TrimSpace(input.Token))
	if !ok {
		return ClaimsOutput{}, errors.New("token is not a decodable JWT")
	}

	out := claimsOutput(claims, false)
	out.Reason = "signature not checked"
	return out, nil
}

func (s *Server) handleVerify(_ context.Context, input TokenInput) (ClaimsOutput, error) {
	claims, err := s.tokens.Verify(strings.TrimSpace(input.Token))
	if err != nil {
		return ClaimsOutput{
			Verified: false,
			Expired:  errors.Is(err, token.ErrExpired),
			Reason:   err.Error(),
		}, nil
	}
	return claimsOutput(claims, true), nil
}

func (s *Server) handleLookup(ctx context.Context, input LookupInput) (LookupOutput, error) {
	if s.users == nil {
		return LookupOutput{}, errors.New("user directory not configured")
	}

	var (
		u   *domain.User
		err error
	)
	switch {
	case strings.TrimSpace(input.Email) != "":
		u, err = s.users.FindByEmail(ctx, input.Email)
	case input.ID != "":
		id, parseErr := uuid.Parse(strings.TrimSpace(input.ID))
		if parseErr != nil {
			return LookupOutput{}, fmt.Errorf("invalid user id: %w", parseErr)
		}
		u, err = s.users.FindByID(ctx, id)
	default:
		return LookupOutput{}, errors.New("email or id is required")
	}
	if errors.Is(err, domain.ErrUserNotFound) {
		return LookupOutput{Found: false}, nil
	}
	if err != nil {
		return LookupOutput{}, fmt.Errorf("lookup user: %w", err)
	}

	return LookupOutput{Found: true, User: u.Public()}, nil
}

func claimsOutput(c *token.Claims, verified bool) ClaimsOutput {
	out := ClaimsOutput{
		Verified: verified,
		UserID:   c.UserID,
		Email:    c.Email,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.UTC().Format(time.RFC3339)
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.UTC().Format(time.RFC3339)
		out.Expired = !c.ExpiresAt.After(time.Now())
	}
	return out
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
