package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/models"
	"github.com/diewo77/go-church/internal/validation"
)

// RoleStore is the persistence needed by role administration.
type RoleStore interface {
	RoleSource
	GetRole(ctx context.Context, key string) (*models.Role, error)
	SaveRole(ctx context.Context, role *models.Role, codes []gate.Permission) error
	DeleteRole(ctx context.Context, role *models.Role) error
	CountUsersWithRole(ctx context.Context, key string) (int64, error)
}

// RoleInput is the editable part of a role.
type RoleInput struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// Admin manages stored roles and keeps the resolver cache current.
type Admin struct {
	store    RoleStore
	resolver *Resolver
	logger   *slog.Logger
}

func NewAdmin(store RoleStore, resolver *Resolver, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{store: store, resolver: resolver, logger: logger.With("service", "role_admin")}
}

// Validate checks the input and returns the parsed permission codes.
func (in RoleInput) Validate() ([]gate.Permission, error) {
	v := validation.Violations{}
	validation.Key("key", in.Key, v)
	validation.Required("display_name", in.DisplayName, v)
	validation.MaxLen("display_name", in.DisplayName, 100, v)
	validation.MaxLen("description", in.Description, 500, v)

	seen := map[gate.Permission]bool{}
	perms := make([]gate.Permission, 0, len(in.Permissions))
	for i, code := range in.Permissions {
		perm := gate.Permission(code)
		if err := perm.Validate(); err != nil {
			v[fmt.Sprintf("permissions[%d]", i)] = "invalid_permission"
			continue
		}
		if !seen[perm] {
			seen[perm] = true
			perms = append(perms, perm)
		}
	}
	if !v.Empty() {
		return nil, v
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms, nil
}

// Create stores a new custom role. Built-in keys may be created once to
// override their defaults.
func (a *Admin) Create(ctx context.Context, in RoleInput) (*models.Role, error) {
	perms, err := in.Validate()
	if err != nil {
		return nil, err
	}
	if _, err := a.store.GetRole(ctx, in.Key); err == nil {
		return nil, ErrRoleExists
	} else if !errors.Is(err, ErrRoleNotFound) {
		return nil, err
	}
	role := &models.Role{
		Key:         in.Key,
		DisplayName: in.DisplayName,
		Description: in.Description,
		IsSystem:    IsBuiltin(in.Key),
	}
	if err := a.store.SaveRole(ctx, role, perms); err != nil {
		return nil, err
	}
	a.logger.Info("role created", "key", role.Key, "permissions", len(perms))
	a.refresh(ctx)
	return role, nil
}

// Update replaces the name, description and permissions of a role.
func (a *Admin) Update(ctx context.Context, key string, in RoleInput) (*models.Role, error) {
	in.Key = key
	perms, err := in.Validate()
	if err != nil {
		return nil, err
	}
	role, err := a.store.GetRole(ctx, key)
	if err != nil {
		return nil, err
	}
	role.DisplayName = in.DisplayName
	role.Description = in.Description
	if err := a.store.SaveRole(ctx, role, perms); err != nil {
		return nil, err
	}
	a.logger.Info("role updated", "key", key, "permissions", len(perms))
	a.refresh(ctx)
	return role, nil
}

// Delete removes a custom role. System roles and roles still assigned to
// users are kept.
func (a *Admin) Delete(ctx context.Context, key string) error {
	role, err := a.store.GetRole(ctx, key)
	if err != nil {
		return err
	}
	if role.IsSystem || IsBuiltin(key) {
		return ErrSystemRole
	}
	n, err := a.store.CountUsersWithRole(ctx, key)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d users", ErrRoleInUse, n)
	}
	if err := a.store.DeleteRole(ctx, role); err != nil {
		return err
	}
	a.logger.Info("role deleted", "key", key)
	a.refresh(ctx)
	return nil
}

// List returns all roles, built-in and stored.
func (a *Admin) List(ctx context.Context, lang string) []RoleInfo {
	return a.resolver.AllRoles(ctx, lang)
}

// refresh reloads the cache after a change. A fetch already in flight may
// predate the change, so it is not joined.
func (a *Admin) refresh(ctx context.Context) {
	if err := a.resolver.Reload(ctx); err != nil {
		a.logger.Warn("role cache refresh after change failed", "error", err)
		a.resolver.Invalidate()
	}
}
