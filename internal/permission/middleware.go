package permission

import (
	"net/http"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/httpx"
)

// RequirePermission returns middleware that checks the request identity.
// Missing identity yields 401; a denied check yields 403.
func (r *Resolver) RequirePermission(module gate.Module, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id, ok := auth.FromContext(req.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !r.Can(id, module, action) {
				r.logger.Info("permission denied",
					"user_id", id.UserID, "role", id.Role, "status", id.Status,
					"module", module, "action", action)
				httpx.JSONError(w, http.StatusForbidden, "forbidden", map[string]string{
					"permission": string(gate.NewPermission(module, action)),
				})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
