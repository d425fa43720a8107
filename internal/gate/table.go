package gate

import "sort"

// Table is the permission set granted to a single role.
// A nil *Table grants nothing.
type Table struct {
	permissions map[Permission]bool
}

// NewTable creates a table with the given permissions.
func NewTable(permissions ...Permission) *Table {
	t := &Table{permissions: make(map[Permission]bool, len(permissions))}
	for _, perm := range permissions {
		t.permissions[perm] = true
	}
	return t
}

// Permissions returns all permissions in this table, sorted.
func (t *Table) Permissions() []Permission {
	if t == nil {
		return nil
	}
	perms := make([]Permission, 0, len(t.permissions))
	for perm := range t.permissions {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// HasPermission checks if the table grants the requested permission.
// Supports wildcard and manage matching.
func (t *Table) HasPermission(requested Permission) bool {
	if t == nil {
		return false
	}
	if t.permissions[requested] {
		return true
	}
	for perm := range t.permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// Allows is HasPermission for a module/action pair.
func (t *Table) Allows(module Module, action Action) bool {
	return t.HasPermission(NewPermission(module, action))
}

// Matrix expands the table into a module -> action -> allowed grid over
// the closed enumerations. Useful for admin screens and /me endpoints.
func (t *Table) Matrix() map[Module]map[Action]bool {
	m := make(map[Module]map[Action]bool, len(Modules))
	for _, mod := range Modules {
		row := make(map[Action]bool, len(Actions))
		for _, act := range Actions {
			row[act] = t.Allows(mod, act)
		}
		m[mod] = row
	}
	return m
}
