package handlers

import (
	"net/http"

	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/permission"
)

type PermissionHandler struct {
	Resolver *permission.Resolver
}

func NewPermissionHandler(resolver *permission.Resolver) *PermissionHandler {
	return &PermissionHandler{Resolver: resolver}
}

// Me returns the caller's role, label and permission matrix.
func (h *PermissionHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":    id.UserID,
		"role":       id.Role,
		"role_label": h.Resolver.RoleLabel(lang, id.Role),
		"status":     id.Status,
		"matrix":     h.Resolver.Matrix(id),
	})
}

// Check answers a single module/action question for the caller.
func (h *PermissionHandler) Check(w http.ResponseWriter, r *http.Request) {
	id, ok := currentUser(w, r)
	if !ok {
		return
	}
	module := gate.Module(r.URL.Query().Get("module"))
	action := gate.Action(r.URL.Query().Get("action"))
	if !module.Valid() || !action.Valid() {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_permission", map[string]string{
			"module": string(module),
			"action": string(action),
		})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"module":  module,
		"action":  action,
		"allowed": h.Resolver.Can(id, module, action),
	})
}

// Roles lists built-in and custom roles. ?cached=1 answers from the cache
// without touching the database.
func (h *PermissionHandler) Roles(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LangFromContext(r.Context())
	var roles []permission.RoleInfo
	if r.URL.Query().Get("cached") == "1" {
		roles = h.Resolver.AllRolesCached(lang)
	} else {
		roles = h.Resolver.AllRoles(r.Context(), lang)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// RoleLabel resolves the display label of a role.
func (h *PermissionHandler) RoleLabel(w http.ResponseWriter, r *http.Request) {
	role := r.PathValue("role")
	lang := i18n.LangFromContext(r.Context())
	label, err := h.Resolver.RoleLabelContext(r.Context(), lang, role)
	resp := map[string]any{"role": role, "label": label}
	if err != nil {
		resp["stale"] = true
	}
	httpx.JSON(w, http.StatusOK, resp)
}
