package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/signup/internal/api/envelope"
	"github.com/felixgeelhaar/signup/internal/token"
)

// Verifier validates a bearer token
type Verifier interface {
	Verify(ctx context.Context, tokenString string) (*token.Claims, error)
}

// Messages
const (
	MsgTokenRequired = "Access token required"
	MsgTokenInvalid  = "Invalid or expired token"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Authenticate rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func Authenticate(v Verifier, ew *envelope.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := BearerToken(r)
			if !ok {
				ew.Error(w, r, http.StatusUnauthorized, MsgTokenRequired, nil)
				return
			}

			claims, err := v.Verify(r.Context(), tok)
			if err != nil {
				ew.Error(w, r, http.StatusUnauthorized, MsgTokenInvalid, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves verified token claims from context
func GetClaims(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*token.Claims)
	return claims, ok
}
