package auth

const (
	PermEmployeesRead   = "core.employees.read"
	PermEmployeesWrite  = "core.employees.write"
	PermLeaveRead       = "leave.read"
	PermLeaveWrite      = "leave.write"
	PermLeaveApprove    = "leave.approve"
	PermLeaveAdmin      = "leave.admin"
	PermAttendanceRead  = "attendance.read"
	PermAttendanceWrite = "attendance.write"
	PermAttendanceAdmin = "attendance.admin"
	PermReportsRead     = "reports.read"
	PermAuditRead       = "audit.read"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermLeaveAdmin,
	PermAttendanceRead,
	PermAttendanceWrite,
	PermAttendanceAdmin,
	PermReportsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermAttendanceRead,
		PermAttendanceWrite,
	},
	RoleManager: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermReportsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermLeaveAdmin,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermAttendanceAdmin,
		PermReportsRead,
		PermAuditRead,
	},
}
