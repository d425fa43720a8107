// Package handlers exposes the JSON API. Handlers assume the identity and
// language middlewares have already run.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/validation"
)

// currentUser returns the identity or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.UserID == 0 {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return auth.Identity{}, false
	}
	return id, true
}

// writeValidation answers 400 with field violations when err carries
// them, reporting whether it did.
func writeValidation(w http.ResponseWriter, err error) bool {
	var v validation.Violations
	if errors.As(err, &v) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return true
	}
	return false
}

func pathUint(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
