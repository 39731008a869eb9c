// Package auth provides role-based authorization for the EHR platform.
package auth

// Role identifies a class of clinic user.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleProvider      Role = "provider"
	RoleNurse         Role = "nurse"
	RoleMRO           Role = "mro"
	RoleFrontDesk     Role = "front-desk"
	RoleSafetyOfficer Role = "safety-officer"
)

// Permission strings gate individual service operations.
const (
	PermAll              = "all"
	PermViewPatients     = "view_patients"
	PermEditPatients     = "edit_patients"
	PermViewEncounters   = "view_encounters"
	PermCreateEncounters = "create_encounters"
	PermEditEncounters   = "edit_encounters"
	PermSignEncounters   = "sign_encounters"
	PermSignAnyEncounter = "sign_any_encounter"
	PermAmendEncounters  = "amend_encounters"
	PermVoidEncounters   = "void_encounters"
	PermRecordVitals     = "record_vitals"
	PermViewAuditLog     = "view_audit_log"
)

// rolePermissions is the static role -> permission-set table. Roles absent
// from the table have no permissions.
var rolePermissions = map[Role][]string{
	RoleAdmin: {PermAll},
	RoleProvider: {
		PermViewPatients, PermEditPatients,
		PermViewEncounters, PermCreateEncounters, PermEditEncounters,
		PermSignEncounters, PermAmendEncounters, PermVoidEncounters,
		PermRecordVitals,
	},
	RoleNurse: {
		PermViewPatients,
		PermViewEncounters, PermCreateEncounters, PermEditEncounters,
		PermRecordVitals,
	},
	RoleMRO: {
		PermViewPatients,
		PermViewEncounters, PermSignEncounters, PermAmendEncounters,
	},
	RoleFrontDesk: {
		PermViewPatients, PermEditPatients,
	},
	RoleSafetyOfficer: {
		PermViewEncounters, PermViewAuditLog,
	},
}

// HasPermission reports whether role grants perm. Unknown roles have no
// permissions; the wildcard grants everything.
func HasPermission(role Role, perm string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == PermAll || p == perm {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the permission set for role.
func Permissions(role Role) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
