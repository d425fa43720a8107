// Package policy wires the authorization resolver, the domain services and
// the HTTP handlers into one router configuration.
package policy

import (
	"log/slog"

	"github.com/diewo77/go-church/internal/config"
	"github.com/diewo77/go-church/internal/handlers"
	"github.com/diewo77/go-church/internal/notification"
	"github.com/diewo77/go-church/internal/permission"
	"github.com/diewo77/go-church/internal/settings"
	"github.com/diewo77/go-church/internal/store"
	"github.com/diewo77/go-church/internal/theme"
	"github.com/diewo77/go-church/internal/users"
	"gorm.io/gorm"
)

// RouterConfig holds configured services and handlers for the application.
type RouterConfig struct {
	// Authorization
	Resolver *permission.Resolver

	// Long-lived state owned by the process
	Palette  *theme.Palette
	Settings *settings.Service
	Inboxes  *notification.Inboxes
	Users    *users.Service

	// Handlers
	SettingsHandler     *handlers.SettingsHandler
	PermissionHandler   *handlers.PermissionHandler
	NotificationHandler *handlers.NotificationHandler
	AdminRoleHandler    *handlers.AdminRoleHandler
	AdminUserHandler    *handlers.AdminUserHandler
}

// NewRouterConfig creates a fully configured router setup. Nothing is
// loaded or started here; callers run Settings.Init, Resolver.Refresh and
// Inboxes.Start once the server is ready.
//
// Example usage:
//
//	rc := policy.NewRouterConfig(db, docs, cfg, logger)
//	mux.Handle("PATCH /api/settings",
//		rc.Resolver.RequirePermission(gate.ModuleSettings, gate.ActionUpdate)(http.HandlerFunc(rc.SettingsHandler.Update)))
func NewRouterConfig(db *gorm.DB, docs store.Store, cfg *config.Config, logger *slog.Logger) *RouterConfig {
	roles := permission.NewGormRoleRepository(db)
	resolver := permission.NewResolver(roles, cfg.App.RoleTTL, logger)
	admin := permission.NewAdmin(roles, resolver, logger)

	palette := theme.NewPalette()
	settingsSvc := settings.NewService(docs, cfg.Store.Tenant, palette, logger)

	prefs := notification.NewPreferencesService(docs, logger)
	notifications, inboxes := notification.NewTracked(db, prefs, cfg.Notifications.RefreshInterval, cfg.Auth.SessionTTL, logger)

	userSvc := users.NewService(db, resolver, logger)

	return &RouterConfig{
		Resolver:            resolver,
		Palette:             palette,
		Settings:            settingsSvc,
		Inboxes:             inboxes,
		Users:               userSvc,
		SettingsHandler:     handlers.NewSettingsHandler(settingsSvc, palette),
		PermissionHandler:   handlers.NewPermissionHandler(resolver),
		NotificationHandler: handlers.NewNotificationHandler(notifications, prefs, inboxes, cfg.Notifications.PageSize),
		AdminRoleHandler:    handlers.NewAdminRoleHandler(admin),
		AdminUserHandler:    handlers.NewAdminUserHandler(userSvc, resolver),
	}
}
