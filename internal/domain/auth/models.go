package auth

const (
	RoleEmployee = "Employee"
	RoleManager  = "Manager"
	RoleHR       = "HR"
)

type UserContext struct {
	UserID   string
	RoleID   string
	RoleName string
}

type AuthUser struct {
	ID       string
	RoleID   string
	RoleName string
	Password string
}
