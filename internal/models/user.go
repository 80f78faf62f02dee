package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleHR         UserRole = "HR"
	RoleSupervisor UserRole = "SUPERVISOR"
	RoleStaff      UserRole = "STAFF"
	// RoleSubjectEmployee is never issued in an access token. It is granted
	// only to a caller holding a verified signing link for their own action.
	RoleSubjectEmployee UserRole = "SUBJECT_EMPLOYEE"
)

// StaffRoles are the roles that can hold an access token.
var StaffRoles = []UserRole{RoleAdmin, RoleHR, RoleSupervisor, RoleStaff}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
