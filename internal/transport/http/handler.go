// Package http exposes the command protocol over HTTP. The protocol is a
// single POST endpoint: transport-level status is always 200 and the
// envelope's own status field carries success or error.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/command"
	"custodia/internal/platform/middleware"
	"custodia/pkg/requestcontext"
)

// Handler serves the command endpoint.
type Handler struct {
	router *command.Router
	logger *slog.Logger
}

// NewHandler constructs the HTTP handler.
func NewHandler(router *command.Router, logger *slog.Logger) *Handler {
	return &Handler{router: router, logger: logger}
}

// Routes builds the chi router with the middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(chimiddleware.Recoverer)

	r.Post("/api/command", h.handleCommand)
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, r, command.Response{
			"status":    "error",
			"message":   "Malformed request envelope",
			"timestamp": requestcontext.Now(r.Context()),
		})
		return
	}
	h.writeJSON(w, r, h.router.Dispatch(r.Context(), req))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, resp command.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil && h.logger != nil {
		h.logger.ErrorContext(r.Context(), "encode response", "error", err)
	}
}
