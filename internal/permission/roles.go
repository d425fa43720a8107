// Package permission resolves what a role may do and how it is labelled.
package permission

import "github.com/diewo77/go-church/internal/gate"

// Built-in roles.
const (
	RoleAdmin        = "admin"
	RolePastor       = "pastor"
	RoleSecretary    = "secretary"
	RoleTreasurer    = "treasurer"
	RoleLeader       = "leader"
	RoleProfessional = "professional"
	RoleMember       = "member"
)

// BuiltinRoles lists the built-in roles from most to least privileged.
var BuiltinRoles = []string{
	RoleAdmin,
	RolePastor,
	RoleSecretary,
	RoleTreasurer,
	RoleLeader,
	RoleProfessional,
	RoleMember,
}

func p(m gate.Module, a gate.Action) gate.Permission { return gate.NewPermission(m, a) }

var builtinTables = map[string]*gate.Table{
	RoleAdmin: gate.NewTable(gate.PermissionSuperAdmin),
	RolePastor: gate.NewTable(
		p(gate.ModuleMembers, gate.ActionManage),
		p(gate.ModuleEvents, gate.ActionManage),
		p(gate.ModuleForum, gate.ActionManage),
		p(gate.ModuleHomePage, gate.ActionManage),
		p(gate.ModuleAssistance, gate.ActionManage),
		p(gate.ModuleNotifications, gate.ActionManage),
		p(gate.ModuleUsers, gate.ActionView),
		p(gate.ModuleDonations, gate.ActionView),
		p(gate.ModuleFinance, gate.ActionView),
		p(gate.ModuleSettings, gate.ActionView),
		p(gate.ModuleSettings, gate.ActionUpdate),
		p(gate.ModuleDashboard, gate.ActionView),
		p(gate.ModuleReports, gate.ActionView),
	),
	RoleSecretary: gate.NewTable(
		p(gate.ModuleMembers, gate.ActionManage),
		p(gate.ModuleEvents, gate.ActionManage),
		p(gate.ModuleHomePage, gate.ActionView),
		p(gate.ModuleHomePage, gate.ActionUpdate),
		p(gate.ModuleNotifications, gate.ActionView),
		p(gate.ModuleNotifications, gate.ActionCreate),
		p(gate.ModuleUsers, gate.ActionView),
		p(gate.ModuleForum, gate.ActionView),
		p(gate.ModuleSettings, gate.ActionView),
		p(gate.ModuleDashboard, gate.ActionView),
		p(gate.ModuleReports, gate.ActionView),
	),
	RoleTreasurer: gate.NewTable(
		p(gate.ModuleDonations, gate.ActionManage),
		p(gate.ModuleFinance, gate.ActionManage),
		p(gate.ModuleMembers, gate.ActionView),
		p(gate.ModuleNotifications, gate.ActionView),
		p(gate.ModuleDashboard, gate.ActionView),
		p(gate.ModuleReports, gate.ActionView),
	),
	RoleLeader: gate.NewTable(
		p(gate.ModuleEvents, gate.ActionView),
		p(gate.ModuleEvents, gate.ActionCreate),
		p(gate.ModuleEvents, gate.ActionUpdate),
		p(gate.ModuleForum, gate.ActionManage),
		p(gate.ModuleMembers, gate.ActionView),
		p(gate.ModuleNotifications, gate.ActionView),
		p(gate.ModuleNotifications, gate.ActionCreate),
		p(gate.ModuleDashboard, gate.ActionView),
	),
	RoleProfessional: gate.NewTable(
		p(gate.ModuleAssistance, gate.ActionManage),
		p(gate.ModuleMembers, gate.ActionView),
		p(gate.ModuleEvents, gate.ActionView),
		p(gate.ModuleNotifications, gate.ActionView),
		p(gate.ModuleDashboard, gate.ActionView),
	),
	RoleMember: gate.NewTable(
		p(gate.ModuleEvents, gate.ActionView),
		p(gate.ModuleForum, gate.ActionView),
		p(gate.ModuleForum, gate.ActionCreate),
		p(gate.ModuleDonations, gate.ActionCreate),
		p(gate.ModuleNotifications, gate.ActionView),
		p(gate.ModuleHomePage, gate.ActionView),
	),
}

// IsBuiltin reports whether role is one of the built-in roles.
func IsBuiltin(role string) bool {
	_, ok := builtinTables[role]
	return ok
}

// BuiltinTable returns the default table of a built-in role.
func BuiltinTable(role string) (*gate.Table, bool) {
	t, ok := builtinTables[role]
	return t, ok
}
