package handlers

import (
	"embed"
	"net/http"
)

//go:embed docs/openapi.json docs/index.html docs/swagger-init.js
var docsFS embed.FS

// docsCSP lets the Swagger UI page load its bundle from unpkg.
const docsCSP = "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' https://unpkg.com; img-src 'self' data:"

// DocsHandler serves the OpenAPI document and a Swagger UI page for it
type DocsHandler struct{}

// NewDocsHandler creates a new docs handler
func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

// Spec serves the OpenAPI document
func (h *DocsHandler) Spec(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "docs/openapi.json", "application/json")
}

// UI serves the Swagger UI page
func (h *DocsHandler) UI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Security-Policy", docsCSP)
	h.serve(w, "docs/index.html", "text/html; charset=utf-8")
}

// Script serves the Swagger UI bootstrap script
func (h *DocsHandler) Script(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "docs/swagger-init.js", "text/javascript; charset=utf-8")
}

func (h *DocsHandler) serve(w http.ResponseWriter, name, contentType string) {
	data, err := docsFS.ReadFile(name)
	if err != nil {
		http.Error(w, "docs unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
