package circuit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voyago/backend-voyago/internal/common"
)

// AdminHandler exposes management endpoints for breaker monitoring and
// operator resets.
type AdminHandler struct {
	Registry *Registry
}

// Routes mounts the admin endpoints on a chi router.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/circuits", h.ListStats)
	r.Post("/circuits/reset", h.ResetAll)
	r.Get("/circuits/{name}", h.GetStats)
	r.Post("/circuits/{name}/reset", h.Reset)
}

// ListStats returns the live snapshot of every registered breaker.
func (h *AdminHandler) ListStats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "breaker registry unavailable", nil)
		return
	}
	stats, err := h.Registry.AllStats(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "breaker state store unreachable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"circuits": stats})
}

// GetStats returns the snapshot of one breaker by service name.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "breaker registry unavailable", nil)
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "service name is required", nil)
		return
	}
	stats, err := h.Registry.Stats(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no breaker registered for service", nil)
			return
		}
		common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "breaker state store unreachable", nil)
		return
	}
	common.JSON(w, http.StatusOK, stats)
}

// Reset clears one breaker back to closed. Resetting an unknown name is a
// no-op and still succeeds.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "breaker registry unavailable", nil)
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "service name is required", nil)
		return
	}
	if err := h.Registry.Reset(r.Context(), name); err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "breaker state store unreachable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "reset", "service": name})
}

// ResetAll clears every registered breaker.
func (h *AdminHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "breaker registry unavailable", nil)
		return
	}
	if err := h.Registry.ResetAll(r.Context()); err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "breaker state store unreachable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
