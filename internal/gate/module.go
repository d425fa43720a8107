package gate

// Module is a functional area of the application, the first key of a permission check.
type Module string

const (
	ModuleUsers         Module = "users"
	ModuleMembers       Module = "members"
	ModuleEvents        Module = "events"
	ModuleForum         Module = "forum"
	ModuleDonations     Module = "donations"
	ModuleFinance       Module = "finance"
	ModuleHomePage      Module = "home_page"
	ModuleAssistance    Module = "assistance"
	ModuleNotifications Module = "notifications"
	ModuleSettings      Module = "settings"
	ModulePermissions   Module = "permissions"
	ModuleDashboard     Module = "dashboard"
	ModuleReports       Module = "reports"
)

// Modules lists every known module in display order.
var Modules = []Module{
	ModuleUsers,
	ModuleMembers,
	ModuleEvents,
	ModuleForum,
	ModuleDonations,
	ModuleFinance,
	ModuleHomePage,
	ModuleAssistance,
	ModuleNotifications,
	ModuleSettings,
	ModulePermissions,
	ModuleDashboard,
	ModuleReports,
}

// Valid reports whether m is one of the known modules.
func (m Module) Valid() bool {
	for _, known := range Modules {
		if m == known {
			return true
		}
	}
	return false
}
