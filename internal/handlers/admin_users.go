package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/permission"
	"github.com/diewo77/go-church/internal/users"
)

type AdminUserHandler struct {
	Users    *users.Service
	Resolver *permission.Resolver
}

func NewAdminUserHandler(svc *users.Service, resolver *permission.Resolver) *AdminUserHandler {
	return &AdminUserHandler{Users: svc, Resolver: resolver}
}

type userView struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	RoleLabel string `json:"role_label"`
	Status    string `json:"status"`
}

// List returns users filtered by ?role= and ?status=.
func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Users.List(r.Context(), users.Filter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, userView{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			RoleLabel: h.Resolver.RoleLabel(lang, u.Role),
			Status:    u.Status,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}

// ChangeRole assigns the role given in {"role": "..."}.
func (h *AdminUserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	h.change(w, r, &body, func(id uint) (any, error) {
		return h.Users.ChangeRole(r.Context(), id, body.Role)
	})
}

// ChangeStatus sets the status given in {"status": "..."}.
func (h *AdminUserHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	h.change(w, r, &body, func(id uint) (any, error) {
		return h.Users.ChangeStatus(r.Context(), id, body.Status)
	})
}

func (h *AdminUserHandler) change(w http.ResponseWriter, r *http.Request, body any, fn func(uint) (any, error)) {
	id, ok := pathUint(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := httpx.DecodeJSON(r, body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	u, err := fn(id)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, u)
	case errors.Is(err, users.ErrUserNotFound):
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
	case errors.Is(err, users.ErrUnknownRole):
		httpx.JSONError(w, http.StatusBadRequest, "unknown_role", nil)
	case errors.Is(err, users.ErrInvalidState):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "db_error", nil)
	}
}
