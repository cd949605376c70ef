package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/felixgeelhaar/signup/internal/api/envelope"
)

// Pinger reports whether the user store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIVersion is reported by the info endpoint
const APIVersion = "1.0.0"

// HealthHandler serves liveness, readiness and API info
type HealthHandler struct {
	db          Pinger
	environment string
	started     time.Time
	timeout     time.Duration
	now         func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, environment string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		environment: environment,
		started:     time.Now(),
		timeout:     2 * time.Second,
		now:         time.Now,
	}
}

// HealthData is the data of the health check
type HealthData struct {
	Uptime      float64 `json:"uptime"`
	Timestamp   string  `json:"timestamp"`
	Database    string  `json:"database"`
	Environment string  `json:"environment"`
}

// Health reports service and database health; 503 when the database is down
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	healthy := h.ping(r.Context())

	data := HealthData{
		Uptime:      h.now().Sub(h.started).Seconds(),
		Timestamp:   h.timestamp(),
		Database:    "connected",
		Environment: h.environment,
	}
	status := http.StatusOK
	message := "Service is healthy"
	if !healthy {
		data.Database = "disconnected"
		status = http.StatusServiceUnavailable
		message = "Service is unhealthy"
	}

	envelope.JSON(w, status, envelope.Response{Success: healthy, Message: message, Data: data})
}

// Ready reports whether the service can take traffic
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ping(r.Context()) {
		envelope.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	envelope.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live is a dependency-free liveness probe
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	envelope.JSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": h.timestamp(),
	})
}

// Info describes the API
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	envelope.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Sign-Up API",
		"version": APIVersion,
		"endpoints": map[string]string{
			"health": "/api/health",
			"docs":   "/api/docs",
			"auth":   "/api/auth",
		},
	})
}

// NotFound answers unknown routes with an envelope
func (h *HealthHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	envelope.JSON(w, http.StatusNotFound, envelope.Response{
		Success: false,
		Message: "Route " + r.Method + " " + r.URL.Path + " not found",
	})
}

func (h *HealthHandler) ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.db.Ping(ctx) == nil
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
