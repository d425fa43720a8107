package permission

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diewo77/go-church/internal/auth"
	"github.com/diewo77/go-church/internal/gate"
	"github.com/diewo77/go-church/internal/i18n"
	"github.com/diewo77/go-church/internal/metrics"
	"github.com/diewo77/go-church/internal/models"
	"golang.org/x/sync/singleflight"
)

var (
	ErrRoleNotFound    = errors.New("role not found")
	ErrRoleExists      = errors.New("role already exists")
	ErrSystemRole      = errors.New("system roles cannot be deleted")
	ErrRoleInUse       = errors.New("role is assigned to users")
	ErrUnauthenticated = errors.New("unauthenticated")
)

const rolesKey = "roles"

// RoleInfo describes a role for listings and labels.
type RoleInfo struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Builtin     bool     `json:"builtin"`
	System      bool     `json:"system"`
	Permissions []string `json:"permissions"`
}

// customRole is the cached form of a stored role.
type customRole struct {
	name        string
	description string
	system      bool
	table       *gate.Table
}

// Resolver answers permission checks from the built-in tables, overridden
// by the stored roles of the last successful fetch. Checks never fail: a
// role that is neither built-in nor stored has no permissions. The TTL only
// schedules refreshes; fetched roles are kept until a newer fetch replaces
// them or Invalidate drops them.
type Resolver struct {
	source RoleSource
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	mu         sync.Mutex // orders snapshot replacement against Invalidate
	roles      atomic.Pointer[map[string]customRole]
	generation atomic.Uint64 // bumped by Invalidate and Reload

	lastRefresh atomic.Int64 // unix nanos of the last successful refresh
}

func NewResolver(source RoleSource, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{
		source: source,
		ttl:    ttl,
		logger: logger.With("service", "permission"),
	}
}

// cached returns the stored role for key from the current snapshot.
func (r *Resolver) cached(key string) (customRole, bool) {
	roles := r.roles.Load()
	if roles == nil {
		return customRole{}, false
	}
	c, ok := (*roles)[key]
	return c, ok
}

// Table returns the effective permission table for role, or nil.
func (r *Resolver) Table(role string) *gate.Table {
	r.refreshIfStale()
	if c, ok := r.cached(role); ok {
		return c.table
	}
	if t, ok := builtinTables[role]; ok {
		return t
	}
	return nil
}

// HasPermission reports whether role may perform action on module.
func (r *Resolver) HasPermission(role string, module gate.Module, action gate.Action) bool {
	allowed := r.Table(role).Allows(module, action)
	result := "deny"
	if allowed {
		result = "allow"
	}
	metrics.PermissionChecks.WithLabelValues(string(module), string(action), result).Inc()
	return allowed
}

// Can checks an identity. Users that are not active have no permissions.
func (r *Resolver) Can(id auth.Identity, module gate.Module, action gate.Action) bool {
	if !id.Active() {
		return false
	}
	return r.HasPermission(id.Role, module, action)
}

// Authorize checks the identity carried by ctx.
func (r *Resolver) Authorize(ctx context.Context, module gate.Module, action gate.Action) error {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !r.Can(id, module, action) {
		return gate.ErrForbidden
	}
	return nil
}

// Matrix returns the module/action grid for an identity.
func (r *Resolver) Matrix(id auth.Identity) map[gate.Module]map[gate.Action]bool {
	if !id.Active() {
		return (*gate.Table)(nil).Matrix()
	}
	return r.Table(id.Role).Matrix()
}

// RoleLabel returns a display label without blocking. Built-in roles use
// their translated label; custom roles use the cached name; anything else
// is returned unchanged.
func (r *Resolver) RoleLabel(lang, role string) string {
	if label, ok := builtinLabel(lang, role); ok {
		return label
	}
	if c, ok := r.cached(role); ok && c.name != "" {
		return c.name
	}
	return role
}

// RoleLabelContext is RoleLabel backed by a refresh when the role is not
// cached. On refresh failure the raw role is returned with the error.
func (r *Resolver) RoleLabelContext(ctx context.Context, lang, role string) (string, error) {
	if label, ok := builtinLabel(lang, role); ok {
		return label, nil
	}
	if c, ok := r.cached(role); ok && c.name != "" {
		return c.name, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return role, err
	}
	return r.RoleLabel(lang, role), nil
}

func builtinLabel(lang, role string) (string, bool) {
	if !IsBuiltin(role) {
		return "", false
	}
	return i18n.T(lang, "role."+role), true
}

// AllRoles fetches the roles from the source. On failure it logs and
// returns the built-in list.
func (r *Resolver) AllRoles(ctx context.Context, lang string) []RoleInfo {
	roles, err := r.load(ctx)
	if err != nil {
		r.logger.Warn("failed to list roles, using defaults", "error", err)
		return DefaultRoles(lang)
	}
	return mergeRoleInfos(lang, roles)
}

// AllRolesCached returns the built-in roles plus whatever custom roles are
// currently cached.
func (r *Resolver) AllRolesCached(lang string) []RoleInfo {
	infos := make(map[string]RoleInfo, len(BuiltinRoles))
	for _, info := range DefaultRoles(lang) {
		infos[info.Key] = info
	}
	if roles := r.roles.Load(); roles != nil {
		for key, c := range *roles {
			infos[key] = cachedInfo(lang, key, c)
		}
	}
	return sortInfos(infos)
}

// DefaultRoles lists the built-in roles with their default permissions.
func DefaultRoles(lang string) []RoleInfo {
	out := make([]RoleInfo, 0, len(BuiltinRoles))
	for _, key := range BuiltinRoles {
		out = append(out, RoleInfo{
			Key:         key,
			Label:       i18n.T(lang, "role."+key),
			Builtin:     true,
			System:      true,
			Permissions: codes(builtinTables[key]),
		})
	}
	return out
}

// Refresh reloads stored roles into the cache. Concurrent calls share one fetch.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err := r.load(ctx)
	return err
}

// Reload fetches the roles again without joining a fetch already in
// flight. A fetch started earlier cannot overwrite the result.
func (r *Resolver) Reload(ctx context.Context) error {
	r.mu.Lock()
	r.generation.Add(1)
	r.group.Forget(rolesKey)
	r.mu.Unlock()
	return r.Refresh(ctx)
}

// Invalidate drops every cached role; the next check triggers a refresh.
// Fetches already in flight are discarded when they complete.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.generation.Add(1)
	r.group.Forget(rolesKey)
	r.roles.Store(nil)
	r.lastRefresh.Store(0)
	r.mu.Unlock()
}

func (r *Resolver) load(ctx context.Context) ([]models.Role, error) {
	v, err, _ := r.group.Do(rolesKey, func() (any, error) {
		gen := r.generation.Load()
		roles, err := r.source.ListRoles(ctx)
		metrics.RoleCacheRefreshes.WithLabelValues(metrics.Outcome(err)).Inc()
		if err != nil {
			return nil, err
		}
		r.store(roles, gen)
		return roles, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Role), nil
}

// store replaces the snapshot with roles fetched at generation gen. A
// fetch that started before Invalidate or Reload is dropped.
func (r *Resolver) store(roles []models.Role, gen uint64) {
	next := make(map[string]customRole, len(roles))
	for _, role := range roles {
		perms := make([]gate.Permission, 0, len(role.Permissions))
		for _, code := range role.Codes() {
			perms = append(perms, gate.Permission(code))
		}
		next[role.Key] = customRole{
			name:        role.DisplayName,
			description: role.Description,
			system:      role.IsSystem,
			table:       gate.NewTable(perms...),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation.Load() != gen {
		metrics.RoleCacheRefreshes.WithLabelValues("stale").Inc()
		r.logger.Debug("discarded role fetch started before invalidation")
		return
	}
	r.roles.Store(&next)
	r.lastRefresh.Store(time.Now().UnixNano())
	r.logger.Debug("role cache refreshed", "roles", len(roles))
}

// refreshIfStale starts a background refresh once half the TTL has passed.
func (r *Resolver) refreshIfStale() {
	last := r.lastRefresh.Load()
	if last != 0 && time.Since(time.Unix(0, last)) < r.ttl/2 {
		return
	}
	// claim the refresh so concurrent checks do not each spawn a goroutine
	if !r.lastRefresh.CompareAndSwap(last, time.Now().UnixNano()) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Refresh(ctx); err != nil {
			r.logger.Warn("background role refresh failed", "error", err)
		}
	}()
}

func mergeRoleInfos(lang string, roles []models.Role) []RoleInfo {
	infos := make(map[string]RoleInfo, len(BuiltinRoles)+len(roles))
	for _, info := range DefaultRoles(lang) {
		infos[info.Key] = info
	}
	for _, role := range roles {
		info := RoleInfo{
			Key:         role.Key,
			Label:       role.DisplayName,
			Description: role.Description,
			Builtin:     IsBuiltin(role.Key),
			System:      role.IsSystem,
			Permissions: role.Codes(),
		}
		if info.Builtin {
			info.Label = i18n.T(lang, "role."+role.Key)
		}
		sort.Strings(info.Permissions)
		infos[role.Key] = info
	}
	return sortInfos(infos)
}

func cachedInfo(lang, key string, c customRole) RoleInfo {
	info := RoleInfo{
		Key:         key,
		Label:       c.name,
		Description: c.description,
		Builtin:     IsBuiltin(key),
		System:      c.system,
		Permissions: codes(c.table),
	}
	if info.Builtin {
		info.Label = i18n.T(lang, "role."+key)
	}
	return info
}

// sortInfos orders built-in roles first in privilege order, then custom
// roles by key.
func sortInfos(infos map[string]RoleInfo) []RoleInfo {
	rank := make(map[string]int, len(BuiltinRoles))
	for i, key := range BuiltinRoles {
		rank[key] = i
	}
	out := make([]RoleInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i].Key]
		rj, jok := rank[out[j].Key]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].Key < out[j].Key
		}
	})
	return out
}

func codes(t *gate.Table) []string {
	perms := t.Permissions()
	out := make([]string, len(perms))
	for i, perm := range perms {
		out[i] = string(perm)
	}
	return out
}
