package shared

// Roles a user may hold.
const (
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

// Capabilities checked by the rbac middleware.
const (
	PermStockView         = "stock.view"
	PermStockEdit         = "stock.edit"
	PermSalesView         = "sales.view"
	PermSalesEdit         = "sales.edit"
	PermReportsView       = "reports.view"
	PermUsersManage       = "users.manage"
	PermNotificationsView = "notifications.view"
)

// EmployeeScopes lists the capabilities granted to employees.
func EmployeeScopes() []string {
	return []string{
		PermStockView,
		PermStockEdit,
		PermSalesView,
		PermSalesEdit,
		PermNotificationsView,
	}
}

// ManagerScopes lists the capabilities granted to managers.
func ManagerScopes() []string {
	return append(EmployeeScopes(), PermReportsView, PermUsersManage)
}

// ScopesForRole returns the capability set of a role, nil when unknown.
func ScopesForRole(role string) []string {
	switch role {
	case RoleManager:
		return ManagerScopes()
	case RoleEmployee:
		return EmployeeScopes()
	default:
		return nil
	}
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleManager || role == RoleEmployee
}
