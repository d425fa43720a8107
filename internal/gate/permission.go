package gate

import (
	"fmt"
	"strings"
)

// Permission represents an allowed action on a module.
// Format: "module:action" (e.g., "events:create", "finance:view")
type Permission string

// NewPermission creates a permission from module and action.
func NewPermission(module Module, action Action) Permission {
	return Permission(string(module) + ":" + string(action))
}

// Parse splits a permission into module and action.
func (p Permission) Parse() (module Module, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return Module(parts[0]), Action(parts[1])
}

// Wildcards for super permissions
const (
	WildcardAll          = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission matches a requested permission.
// Supports wildcards: "*:*" matches all, "events:*" matches all event actions.
// A "manage" grant covers every action on the same module.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin {
		return true
	}
	if p == requested {
		return true
	}
	mod, act := p.Parse()
	reqMod, _ := requested.Parse()
	if mod != reqMod {
		return false
	}
	return string(act) == WildcardAll || act == ActionManage
}

// Validate checks that the permission names a known module and action.
// A module wildcard is only accepted as "*:*".
func (p Permission) Validate() error {
	mod, act := p.Parse()
	if mod == "" || act == "" {
		return fmt.Errorf("%w: %q", ErrMalformedPermission, p)
	}
	if string(mod) == WildcardAll {
		if p != PermissionSuperAdmin {
			return fmt.Errorf("%w: module wildcard requires \"*:*\", got %q", ErrMalformedPermission, p)
		}
		return nil
	}
	if !mod.Valid() {
		return fmt.Errorf("%w: unknown module %q", ErrMalformedPermission, mod)
	}
	if string(act) != WildcardAll && !act.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrMalformedPermission, act)
	}
	return nil
}
