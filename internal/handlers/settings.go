package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-church/internal/document"
	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/settings"
	"github.com/diewo77/go-church/internal/theme"
)

type SettingsHandler struct {
	Settings *settings.Service
	Palette  *theme.Palette
}

func NewSettingsHandler(svc *settings.Service, palette *theme.Palette) *SettingsHandler {
	return &SettingsHandler{Settings: svc, Palette: palette}
}

// Get returns the effective church settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.Settings.Current())
}

// Update applies a partial JSON document to the settings.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	updated, err := h.Settings.Update(r.Context(), patch)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, updated)
	case writeValidation(w, err):
	case errors.Is(err, document.ErrInvalidPatch):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_patch", err.Error())
	case errors.Is(err, document.ErrUnavailable):
		httpx.JSONError(w, http.StatusServiceUnavailable, "store_unavailable", nil)
	case errors.Is(err, settings.ErrDisposed):
		httpx.JSONError(w, http.StatusServiceUnavailable, "unavailable", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "save_failed", nil)
	}
}

// Theme returns the current CSS custom properties.
func (h *SettingsHandler) Theme(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"vars": h.Palette.Vars()})
}

// ThemeCSS serves the palette as a stylesheet.
func (h *SettingsHandler) ThemeCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(h.Palette.CSS()))
}
