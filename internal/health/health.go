// Package health provides the HTTP liveness endpoint and root banner for the
// voice bridge.
//
// The package exposes two endpoints:
//
//   - /health — liveness probe; returns 200 with service metadata.
//   - /       — plain-text banner so a browser hit shows the service is up.
//
// The health response is a JSON object carrying an "ok" flag, the service
// name and version, process uptime in seconds, and the current timestamp.
package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// status is the JSON response body for /health.
type status struct {
	OK            bool    `json:"ok"`
	Service       string  `json:"service"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Timestamp     string  `json:"timestamp"`
}

// Handler serves /health and the root banner. It is safe for concurrent use.
type Handler struct {
	service string
	version string
	started time.Time

	// now is swappable in tests.
	now func() time.Time
}

// New creates a [Handler] reporting the given service name and version.
// Uptime is measured from the moment New is called.
func New(service, version string) *Handler {
	return &Handler{
		service: service,
		version: version,
		started: time.Now(),
		now:     time.Now,
	}
}

// Health is the liveness probe. A running process that can serve HTTP is
// considered alive, so it always returns 200.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, status{
		OK:            true,
		Service:       h.service,
		Version:       h.version,
		UptimeSeconds: now.Sub(h.started).Seconds(),
		Timestamp:     now.UTC().Format(time.RFC3339),
	})
}

// Banner answers the root path with a one-line plain-text identification.
func (h *Handler) Banner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s %s is running\n", h.service, h.version)
}

// Register adds the /health and / routes to mux. The root route is registered
// with the "{$}" pattern so it does not swallow unknown paths.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /{$}", h.Banner)
}

// writeJSON encodes v as JSON and writes it with the given status code. On
// encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"ok":false}`, http.StatusInternalServerError)
	}
}
