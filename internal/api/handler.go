// Package api exposes the record registry over HTTP. The transport is a
// thin shell: it decodes payloads, canonicalizes identifiers, and maps
// the registry's classified errors onto status codes. All decisions
// about stores and caches live below it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"guidd/internal/guid/domain"
)

// idPattern is the identifier shape the service routes on: exactly 32
// hexadecimal characters.
var idPattern = regexp.MustCompile(`^[A-Fa-f0-9]{32}$`)

// RegistryService is the slice of the registry the transport needs.
type RegistryService interface {
	Create(ctx context.Context, id string, p domain.Payload) (*domain.Record, error)
	Get(ctx context.Context, id string) (*domain.Record, error)
	Update(ctx context.Context, id string, p domain.Payload) (*domain.Record, error)
	Delete(ctx context.Context, id string) error
}

// Handler provides the HTTP endpoints for record operations.
type Handler struct {
	registry RegistryService
	logger   *zap.Logger
}

// NewHandler creates a new API handler wrapping the given registry.
func NewHandler(registry RegistryService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, logger: logger}
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Record CRUD
	mux.HandleFunc("POST /guid", h.Create)
	mux.HandleFunc("POST /guid/{id}", h.Create)
	mux.HandleFunc("GET /guid/{id}", h.Get)
	mux.HandleFunc("PATCH /guid/{id}", h.Update)
	mux.HandleFunc("DELETE /guid/{id}", h.Delete)

	// The id is part of the contract for these methods; a bare /guid is
	// a client error, not an unknown route.
	mux.HandleFunc("GET /guid", h.missingID)
	mux.HandleFunc("PATCH /guid", h.missingID)
	mux.HandleFunc("DELETE /guid", h.missingID)

	// Health check
	mux.HandleFunc("GET /healthz", h.Health)

	return mux
}

// === Request/Response Types ===

// RecordResponse is the wire shape of a record.
type RecordResponse struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Expire int64  `json:"expire"`
}

// ErrorResponse is the response body for single errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationResponse is the response body for validation failures.
type ValidationResponse struct {
	Errors map[string]string `json:"errors"`
}

// === Handlers ===

// Create creates a new record, generating an identifier unless the
// path supplies one.
// POST /guid, POST /guid/{id}
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != "" {
		var ok bool
		if id, ok = h.canonicalID(w, id); !ok {
			return
		}
	}

	var p domain.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body."})
		return
	}

	rec, err := h.registry.Create(r.Context(), id, p)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toResponse(rec))
}

// Get returns the live record under the path identifier.
// GET /guid/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.canonicalID(w, r.PathValue("id"))
	if !ok {
		return
	}

	rec, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponse(rec))
}

// Update merges the supplied fields into the record and returns the
// complete merged state.
// PATCH /guid/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.canonicalID(w, r.PathValue("id"))
	if !ok {
		return
	}

	var p domain.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body."})
		return
	}

	rec, err := h.registry.Update(r.Context(), id, p)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponse(rec))
}

// Delete removes the record.
// DELETE /guid/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.canonicalID(w, r.PathValue("id"))
	if !ok {
		return
	}

	if err := h.registry.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthResponse is the response body for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// === Helpers ===

func (h *Handler) missingID(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "GUID not provided."})
}

// canonicalID validates the path identifier against the 32-hex-char
// contract and uppercases it so cache and store keys agree. On failure
// it writes the 400 response and reports !ok.
func (h *Handler) canonicalID(w http.ResponseWriter, id string) (string, bool) {
	if !idPattern.MatchString(id) {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "GUID must be 32 hexadecimal characters."})
		return "", false
	}
	return strings.ToUpper(id), true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, ValidationResponse{Errors: verr.Fields})
		return
	}
	if errors.Is(err, domain.ErrMissingID) {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "GUID not provided."})
		return
	}
	var nferr *domain.NotFoundError
	if errors.As(err, &nferr) {
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "GUID not found or has expired."})
		return
	}

	h.logger.Error("request failed", zap.Error(err))
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error."})
}

func toResponse(rec *domain.Record) RecordResponse {
	return RecordResponse{ID: rec.ID, User: rec.User, Expire: rec.Expire}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}
