package session

import "campusbus/identity/internal/models"

const LoginPath = "/login"

var dashboards = map[models.Role]string{
	models.RoleStudent: "/student-dashboard",
	models.RoleStaff:   "/staff-dashboard",
	models.RoleAdmin:   "/admin-dashboard",
	models.RoleDriver:  "/driver-dashboard",
}

// DashboardPath is where a signed-in user of role lands. Unknown roles go
// back to the login screen.
func DashboardPath(role models.Role) string {
	if path, ok := dashboards[role]; ok {
		return path
	}
	return LoginPath
}

// DisplayName prefers the account name and falls back to its identifier.
func DisplayName(user models.UserRecord) string {
	if user.Name != "" {
		return user.Name
	}
	if user.ID != "" {
		return user.ID
	}
	return user.Email
}
