package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/signup/internal/domain"
	"github.com/felixgeelhaar/signup/internal/token"
)

type fakeUsers map[string]*domain.User

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if email == "broken@ex.com" {
		return nil, errors.New("db down")
	}
	u, ok := f[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range f {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func setupTestServer(t *testing.T, now func() time.Time) (*Server, *token.Manager) {
	t.Helper()

	tokens, err := token.NewManager([]byte("mcp-test-secret"), time.Hour, token.WithClock(now))
	if err != nil {
		t.Fatalf("create token manager: %v", err)
	}

	users := fakeUsers{
		"jane@ex.com": {ID: uuid.New(), FullName: "Jane Doe", Email: "jane@ex.com"},
	}

	return NewServer(Config{Version: "test", Tokens: tokens, Users: users}), tokens
}

func TestNewServer(t *testing.T) {
	s, _ := setupTestServer(t, time.Now)
	if s.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}

	if NewServer(Config{}) == nil {
		t.Fatal("expected non-nil server even with empty config")
	}
}

func TestHandleVerify(t *testing.T) {
	s, tokens := setupTestServer(t, time.Now)
	tok, err := tokens.Issue(token.Identity{UserID: "u-1", Email: "jane@ex.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	out, err := s.handleVerify(context.Background(), TokenInput{Token: " " + tok + "\n"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !out.Verified || out.UserID != "u-1" || out.Email != "jane@ex.com" {
		t.Errorf("unexpected output: %+v", out)
	}
	if out.Expired {
		t.Error("fresh token reported expired")
	}

	out, err = s.handleVerify(context.Background(), TokenInput{Token: "garbage"})
	if err != nil {
		t.Fatalf("verify garbage: %v", err)
	}
	if out.Verified || out.Reason == "" {
		t.Errorf("garbage token should be rejected with a reason, got %+v", out)
	}
}

func TestHandleVerify_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	_, old := setupTestServer(t, func() time.Time { return issuedAt })
	tok, err := old.Issue(token.Identity{UserID: "u-1", Email: "jane@ex.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s, _ := setupTestServer(t, time.Now)
	out, err := s.handleVerify(context.Background(), TokenInput{Token: tok})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Verified || !out.Expired {
		t.Errorf("expected expired rejection, got %+v", out)
	}
}

func TestHandleInspect(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	_, old := setupTestServer(t, func() time.Time { return issuedAt })
	tok, err := old.Issue(token.Identity{UserID: "u-9", Email: "old@ex.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s, _ := setupTestServer(t, time.Now)
	out, err := s.handleInspect(context.Background(), TokenInput{Token: tok})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if out.Verified {
		t.Error("inspect must never report a token as verified")
	}
	if out.UserID != "u-9" || !out.Expired || out.ExpiresAt == "" {
		t.Errorf("unexpected output: %+v", out)
	}

	if _, err := s.handleInspect(context.Background(), TokenInput{Token: "nope"}); err == nil {
		t.Error("expected error for undecodable token")
	}
}

func TestHandleLookup(t *testing.T) {
	s, _ := setupTestServer(t, time.Now)
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		found   bool
		wantErr bool
	}{
		{"existing", "Jane@Ex.com", true, false},
		{"missing", "ghost@ex.com", false, false},
		{"store failure", "broken@ex.com", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.handleLookup(ctx, LookupInput{Email: tt.email})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if out.Found != tt.found {
				t.Errorf("found = %v, want %v", out.Found, tt.found)
			}
			if tt.found && !strings.EqualFold(out.User.Email, tt.email) {
				t.Errorf("email = %q", out.User.Email)
			}
		})
	}
}

func TestHandleLookup_ByID(t *testing.T) {
	janeID := uuid.MustParse("0f8e2c1a-5b7d-4e7e-9c39-3c1f0b8b7a11")
	s := NewServer(Config{Users: fakeUsers{
		"jane@ex.com": {ID: janeID, FullName: "Jane Doe", Email: "jane@ex.com"},
	}})
	ctx := context.Background()

	out, err := s.handleLookup(ctx, LookupInput{ID: janeID.String()})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !out.Found || out.User.ID != janeID.String() {
		t.Errorf("unexpected output: %+v", out)
	}

	out, err = s.handleLookup(ctx, LookupInput{ID: uuid.NewString()})
	if err != nil || out.Found {
		t.Errorf("unknown id: out=%+v err=%v", out, err)
	}

	if _, err := s.handleLookup(ctx, LookupInput{ID: "not-a-uuid"}); err == nil {
		t.Error("expected error for malformed id")
	}
	if _, err := s.handleLookup(ctx, LookupInput{}); err == nil {
		t.Error("expected error without email or id")
	}
}

func TestHandleLookup_NoDirectory(t *testing.T) {
	s := NewServer(Config{})
	if _, err := s.handleLookup(context.Background(), LookupInput{Email: "a@b.co"}); err == nil {
		t.Error("expected error without a directory")
	}
}
