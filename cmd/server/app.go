package main

import (
	"net/http"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/httpx"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/metrics"
	"github.com/diewo77/go-church/internal/policy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	verifier  *auth.Verifier
	routerCfg *policy.RouterConfig
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, verifier *auth.Verifier, routerCfg *policy.RouterConfig) *App {
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		verifier:  verifier,
		routerCfg: routerCfg,
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Metrics wrap the mux directly so the matched pattern is visible to them.
	handler := a.verifier.Middleware(withPreferences(metrics.Middleware(a.mux)))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	rc := a.routerCfg

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	sh := rc.SettingsHandler

	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.Handle("GET /metrics", promhttp.Handler())
	a.mux.HandleFunc("GET /api/theme", sh.Theme)
	a.mux.HandleFunc("GET /theme.css", sh.ThemeCSS)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (require a valid bearer token)
	// ─────────────────────────────────────────────────────────────────────────
	ph := rc.PermissionHandler
	nh := rc.NotificationHandler

	a.mux.Handle("GET /api/me/permissions", a.requireAuth(ph.Me))
	a.mux.Handle("GET /api/permissions/check", a.requireAuth(ph.Check))
	a.mux.Handle("GET /api/roles", a.requireAuth(ph.Roles))
	a.mux.Handle("GET /api/roles/{role}/label", a.requireAuth(ph.RoleLabel))
	a.mux.Handle("GET /api/settings", a.requireAuth(sh.Get))

	a.mux.Handle("GET /api/me/notification-preferences", a.requireAuth(nh.Preferences))
	a.mux.Handle("PATCH /api/me/notification-preferences", a.requireAuth(nh.UpdatePreferences))
	a.mux.Handle("GET /api/notifications", a.requireAuth(nh.List))
	a.mux.Handle("GET /api/notifications/unread-count", a.requireAuth(nh.UnreadCount))
	a.mux.Handle("POST /api/notifications/read-all", a.requireAuth(nh.MarkAllRead))
	a.mux.Handle("POST /api/notifications/{id}/read", a.requireAuth(nh.MarkRead))
	a.mux.Handle("POST /api/notifications/{id}/archive", a.requireAuth(nh.Archive))
	a.mux.Handle("POST /api/logout", a.requireAuth(nh.Logout))

	// ─────────────────────────────────────────────────────────────────────────
	// Protected routes (require auth + specific permissions)
	// ─────────────────────────────────────────────────────────────────────────
	rh := rc.AdminRoleHandler
	uh := rc.AdminUserHandler

	a.mux.Handle("PATCH /api/settings",
		a.requirePermission(gate.ModuleSettings, gate.ActionUpdate, sh.Update))
	a.mux.Handle("POST /api/admin/notifications",
		a.requirePermission(gate.ModuleNotifications, gate.ActionCreate, nh.CreateCustom))

	a.mux.Handle("GET /api/admin/roles",
		a.requirePermission(gate.ModulePermissions, gate.ActionManage, rh.List))
	a.mux.Handle("POST /api/admin/roles",
		a.requirePermission(gate.ModulePermissions, gate.ActionManage, rh.Create))
	a.mux.Handle("PUT /api/admin/roles/{key}",
		a.requirePermission(gate.ModulePermissions, gate.ActionManage, rh.Update))
	a.mux.Handle("DELETE /api/admin/roles/{key}",
		a.requirePermission(gate.ModulePermissions, gate.ActionManage, rh.Delete))

	a.mux.Handle("GET /api/admin/users",
		a.requirePermission(gate.ModuleUsers, gate.ActionView, uh.List))
	a.mux.Handle("PUT /api/admin/users/{id}/role",
		a.requirePermission(gate.ModuleUsers, gate.ActionUpdate, uh.ChangeRole))
	a.mux.Handle("PUT /api/admin/users/{id}/status",
		a.requirePermission(gate.ModuleUsers, gate.ActionUpdate, uh.ChangeStatus))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware helpers
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth wraps a handler to require a signed-in identity.
func (a *App) requireAuth(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

// requirePermission wraps a handler to require a permission.
func (a *App) requirePermission(module gate.Module, action gate.Action, h http.HandlerFunc) http.Handler {
	return a.routerCfg.Resolver.RequirePermission(module, action)(h)
}

// withPreferences injects the language preference from query, cookie or
// Accept-Language.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = i18n.DetectLanguage(c.Value)
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.DetectLanguage(q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "database_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"settingsLoaded": a.routerCfg.Settings.Loaded(),
	})
}
