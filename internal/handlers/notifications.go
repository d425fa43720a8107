package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/go-church/internal/document"
	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/models"
	"github.com/diewo77/go-church/internal/notification"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	Service  *notification.Service
	Prefs    *notification.PreferencesService
	Inboxes  *notification.Inboxes
	PageSize int
}

func NewNotificationHandler(svc *notification.Service, prefs *notification.PreferencesService, inboxes *notification.Inboxes, pageSize int) *NotificationHandler {
	return &NotificationHandler{Service: svc, Prefs: prefs, Inboxes: inboxes, PageSize: pageSize}
}

// List returns the caller's notifications and opens the inbox.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.StatusUnread, models.StatusRead, models.StatusArchived:
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	items, err := h.Service.List(r.Context(), id.UserID, status, queryInt(r, "limit", h.PageSize))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	inbox := h.Inboxes.Open(r.Context(), id.UserID)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        inbox.Unread(),
	})
}

// UnreadCount returns the session counter; ?refresh=1 reconciles first.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		n, err := h.Inboxes.Refresh(r.Context(), id.UserID)
		resp := map[string]any{"unread": n}
		if err != nil {
			resp["stale"] = true
		}
		httpx.JSON(w, http.StatusOK, resp)
		return
	}
	inbox := h.Inboxes.Open(r.Context(), id.UserID)
	httpx.JSON(w, http.StatusOK, map[string]any{"unread": inbox.Unread()})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.MarkAsRead)
}

func (h *NotificationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Archive)
}

type transitionFunc func(ctx context.Context, userID uint, id uuid.UUID) (*models.Notification, error)

func (h *NotificationHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	nid, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	n, err := fn(r.Context(), id.UserID, nid)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, n)
	case errors.Is(err, notification.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, notification.ErrInvalidTransition):
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
	}
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.Service.MarkAllAsRead(r.Context(), id.UserID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": n, "unread": 0})
}

// Preferences returns the caller's notification preferences.
func (h *NotificationHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.Prefs.Get(r.Context(), id.UserID))
}

// UpdatePreferences merges a partial document into the caller's preferences.
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch map[string]any
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	prefs, err := h.Prefs.Update(r.Context(), id.UserID, patch)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, prefs)
	case writeValidation(w, err):
	case errors.Is(err, document.ErrInvalidPatch):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_patch", err.Error())
	case errors.Is(err, document.ErrUnavailable):
		httpx.JSONError(w, http.StatusServiceUnavailable, "store_unavailable", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "save_failed", nil)
	}
}

// Logout drops the caller's inbox so its periodic refresh stops.
func (h *NotificationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.Inboxes.Close(id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// CreateCustom fans an admin-authored notification out to its recipients.
func (h *NotificationHandler) CreateCustom(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in notification.CustomInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	d, err := h.Service.CreateCustom(r.Context(), id.UserID, in)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusCreated, d)
	case writeValidation(w, err):
	case errors.Is(err, notification.ErrNoRecipients):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "no_recipients", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "delivery_failed", nil)
	}
}
