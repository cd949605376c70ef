// Package handlers contains the HTTP handlers of the auth API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/signup/internal/api/envelope"
	"github.com/felixgeelhaar/signup/internal/api/middleware"
	"github.com/felixgeelhaar/signup/internal/auth"
)

// AuthService is the auth flow used by the handlers
type AuthService interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.Result, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.Result, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService AuthService
	validator   *Validator
	resp        *envelope.Writer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, validator *Validator, resp *envelope.Writer) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
		resp:        resp,
	}
}

// SignupRequest is the request body for signup
type SignupRequest struct {
	FullName string `json:"fullName" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72,strong"`
}

// normalize trims the name so length rules apply to what gets stored
func (r *SignupRequest) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenData is the data of a successful signup or login
type TokenData struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// Signup handles account creation
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.Signup(r.Context(), auth.SignupRequest{
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  req.Password,
		RequestID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err, auth.MsgSignupFailed)
		return
	}

	envelope.Success(w, http.StatusCreated, result.Message, TokenData{Token: result.Token, User: result.User})
}

// Login handles email/password authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), auth.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		RequestID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err, auth.MsgLoginFailed)
		return
	}

	envelope.Success(w, http.StatusOK, result.Message, TokenData{Token: result.Token, User: result.User})
}

// Verify returns the claims of the bearer token checked by middleware.Authenticate
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		h.resp.Error(w, r, http.StatusUnauthorized, middleware.MsgTokenRequired, nil)
		return
	}

	envelope.Success(w, http.StatusOK, "Token is valid", map[string]any{"user": claims})
}

// decode reads and validates a JSON body, writing the error response itself
// when it returns false. Unknown fields are rejected like validation errors.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.resp.Error(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return false
		}
		if field, ok := unknownField(err); ok {
			h.resp.Reject(w, r, http.StatusBadRequest, auth.MsgValidationFailed, `"`+field+`" is not allowed`)
			return false
		}
		h.resp.Error(w, r, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		h.resp.Error(w, r, http.StatusBadRequest, "Invalid request body", errors.New("unexpected data after JSON body"))
		return false
	}

	if n, ok := dst.(interface{ normalize() }); ok {
		n.normalize()
	}

	if msg := h.validator.Validate(dst); msg != "" {
		h.resp.Reject(w, r, http.StatusBadRequest, auth.MsgValidationFailed, msg)
		return false
	}
	return true
}

// unknownField extracts the field name from encoding/json's
// DisallowUnknownFields error.
func unknownField(err error) (string, bool) {
	rest, ok := strings.CutPrefix(err.Error(), "json: unknown field ")
	if !ok {
		return "", false
	}
	return strings.Trim(rest, `"`), true
}

// fail maps an auth flow failure to a status code
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	f, ok := auth.AsFailure(err)
	if !ok {
		h.resp.Error(w, r, http.StatusInternalServerError, fallback, err)
		return
	}

	switch f.Kind {
	case auth.KindValidation:
		h.resp.Error(w, r, http.StatusBadRequest, f.Message, f.Err)
	case auth.KindConflict:
		h.resp.Error(w, r, http.StatusConflict, f.Message, f.Err)
	case auth.KindInvalidCredentials, auth.KindUnauthenticated:
		h.resp.Error(w, r, http.StatusUnauthorized, f.Message, f.Err)
	default:
		h.resp.Error(w, r, http.StatusInternalServerError, f.Message, f.Err)
	}
}
