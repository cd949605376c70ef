// Package envelope writes the JSON response shape shared by every endpoint:
// {"success", "message", "data"} on success and {"success", "message", "error"}
// on failure.
package envelope

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the JSON body of every API response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Writer writes envelopes. In debug mode failure causes are echoed in the
// error field; otherwise they are only logged.
type Writer struct {
	Debug  bool
	Logger *slog.Logger
}

// New creates a writer
func New(debug bool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Debug: debug, Logger: logger}
}

// JSON writes v as a JSON response
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Success writes a success envelope
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Response{Success: true, Message: message, Data: data})
}

// Reject writes a client failure whose detail is always shown, such as a
// validation message.
func (ew *Writer) Reject(w http.ResponseWriter, r *http.Request, status int, message, detail string) {
	ew.log(w, r, status, message, nil)
	JSON(w, status, Response{Success: false, Message: message, Error: detail})
}

// Error writes a failure envelope. The cause is logged and, in debug mode only,
// returned to the client.
func (ew *Writer) Error(w http.ResponseWriter, r *http.Request, status int, message string, cause error) {
	ew.log(w, r, status, message, cause)

	resp := Response{Success: false, Message: message}
	if ew.Debug && cause != nil {
		resp.Error = cause.Error()
	}
	JSON(w, status, resp)
}

func (ew *Writer) log(w http.ResponseWriter, r *http.Request, status int, message string, cause error) {
	logger := ew.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"message", message,
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if cause != nil {
		attrs = append(attrs, "cause", cause.Error())
	}
	if requestID := w.Header().Get("X-Request-ID"); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	if status >= 500 {
		logger.Error("api error", attrs...)
	} else if status >= 400 {
		logger.Warn("api error", attrs...)
	}
}
