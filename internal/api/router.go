package api

import (
	"net/http"

	"github.com/felixgeelhaar/signup/internal/api/envelope"
	"github.com/felixgeelhaar/signup/internal/api/handlers"
	"github.com/felixgeelhaar/signup/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux    *http.ServeMux
	app    *App
	resp   *envelope.Writer
	auth   *handlers.AuthHandler
	health *handlers.HealthHandler
	docs   *handlers.DocsHandler
}

// NewRouter creates the API handler with all routes and middleware configured
func NewRouter(app *App) http.Handler {
	resp := envelope.New(app.Config.IsDevelopment(), app.Logger)

	r := &Router{
		mux:    http.NewServeMux(),
		app:    app,
		resp:   resp,
		auth:   handlers.NewAuthHandler(app.Auth, handlers.NewValidator(), resp),
		health: handlers.NewHealthHandler(app.Users, app.Config.Environment),
		docs:   handlers.NewDocsHandler(),
	}

	r.registerRoutes()

	return r.buildMiddlewareChain(r.mux)
}

func (r *Router) registerRoutes() {
	authLimit := r.limit(r.app.Limiters.Auth, MsgTooManyAuth)
	signupLimit := r.limit(r.app.Limiters.Signup, MsgTooManySignups)
	authenticate := middleware.Authenticate(r.app.Auth, r.resp)

	// Auth
	r.mux.Handle("POST /api/auth/signup", authLimit(signupLimit(http.HandlerFunc(r.auth.Signup))))
	r.mux.Handle("POST /api/auth/login", authLimit(http.HandlerFunc(r.auth.Login)))
	r.mux.Handle("GET /api/auth/verify", authLimit(authenticate(http.HandlerFunc(r.auth.Verify))))

	// Health
	r.mux.HandleFunc("GET /api/health", r.health.Health)
	r.mux.HandleFunc("GET /api/health/ready", r.health.Ready)
	r.mux.HandleFunc("GET /health", r.health.Live)

	// Info
	r.mux.HandleFunc("GET /api", r.health.Info)
	r.mux.HandleFunc("GET /api/{$}", r.health.Info)

	// Docs
	r.mux.HandleFunc("GET /api/docs", r.docs.UI)
	r.mux.HandleFunc("GET /api/docs/{$}", r.docs.UI)
	r.mux.HandleFunc("GET /api/docs/swagger.json", r.docs.Spec)
	r.mux.HandleFunc("GET /api/docs/swagger-init.js", r.docs.Script)

	r.mux.HandleFunc("/", r.health.NotFound)
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	cfg := r.app.Config

	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.MaxBytes(cfg.MaxBodyBytes)(handler)
	handler = r.limit(r.app.Limiters.General, MsgTooManyRequests)(handler)
	handler = middleware.CORS(cfg.CORSOrigins)(handler)
	handler = middleware.SecureHeaders(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logger(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// limit returns a rate limit middleware, or a pass-through when rate
// limiting is disabled.
func (r *Router) limit(l middleware.Limiter, message string) func(http.Handler) http.Handler {
	if l == nil || !r.app.Config.RateLimitEnabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(l, message, r.app.Config.TrustProxy)
}
