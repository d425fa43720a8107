package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/permission"
)

// AdminRoleHandler manages stored roles. Routes are guarded by
// permissions:manage.
type AdminRoleHandler struct {
	Admin *permission.Admin
}

func NewAdminRoleHandler(admin *permission.Admin) *AdminRoleHandler {
	return &AdminRoleHandler{Admin: admin}
}

func (h *AdminRoleHandler) List(w http.ResponseWriter, r *http.Request) {
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": h.Admin.List(r.Context(), lang)})
}

func (h *AdminRoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in permission.RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	role, err := h.Admin.Create(r.Context(), in)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *AdminRoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in permission.RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	role, err := h.Admin.Update(r.Context(), r.PathValue("key"), in)
	if err != nil {
		writeRoleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *AdminRoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Admin.Delete(r.Context(), r.PathValue("key")); err != nil {
		writeRoleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeRoleError(w http.ResponseWriter, err error) {
	switch {
	case writeValidation(w, err):
	case errors.Is(err, permission.ErrRoleNotFound):
		httpx.JSONError(w, http.StatusNotFound, "role_not_found", nil)
	case errors.Is(err, permission.ErrRoleExists):
		httpx.JSONError(w, http.StatusConflict, "role_exists", nil)
	case errors.Is(err, permission.ErrSystemRole):
		httpx.JSONError(w, http.StatusConflict, "system_role", nil)
	case errors.Is(err, permission.ErrRoleInUse):
		httpx.JSONError(w, http.StatusConflict, "role_in_use", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
	}
}
