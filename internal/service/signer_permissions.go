package service

import "github.com/noah-isme/care-ops-api/internal/models"

// signerPermissions maps each signer type to the caller roles allowed to record it.
// EMPLOYEE signatures are only reachable through a verified signing link.
var signerPermissions = map[models.SignerType]map[models.UserRole]struct{}{
	models.SignerEmployee: {
		models.RoleSubjectEmployee: {},
	},
	models.SignerSupervisor: {
		models.RoleSupervisor: {},
		models.RoleAdmin:      {},
	},
	models.SignerWitness: {
		models.RoleStaff:      {},
		models.RoleSupervisor: {},
		models.RoleHR:         {},
		models.RoleAdmin:      {},
	},
	models.SignerHR: {
		models.RoleHR:    {},
		models.RoleAdmin: {},
	},
}

// CanSign reports whether role may record a signature of signerType.
func CanSign(signerType models.SignerType, role models.UserRole) bool {
	roles, ok := signerPermissions[signerType]
	if !ok {
		return false
	}
	_, allowed := roles[role]
	return allowed
}

var voidRoles = map[models.UserRole]struct{}{
	models.RoleAdmin: {},
	models.RoleHR:    {},
}

func canVoid(role models.UserRole) bool {
	_, ok := voidRoles[role]
	return ok
}

func canEditAny(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleHR
}
