// Package rbac implements role-based permission checks for moderation
// actions. Role types form a strict total order; permissions are named
// boolean capability gates with per-role-type defaults and optional per-role
// overrides. All checks are pure.
package rbac

import (
	"fmt"
)

type RoleType string

const (
	RoleViewer     RoleType = "viewer"
	RoleModerator  RoleType = "moderator"
	RoleAdmin      RoleType = "admin"
	RoleSuperAdmin RoleType = "super_admin"
)

// roleLevels orders the role types: viewer < moderator < admin < super_admin
var roleLevels = map[RoleType]int{
	RoleViewer:     1,
	RoleModerator:  2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

const (
	PermViewDashboard    = "can_view_dashboard"
	PermViewAuditLog     = "can_view_audit_log"
	PermModerateContent  = "can_moderate_content"
	PermFlagUsers        = "can_flag_users"
	PermRevokeOrganizers = "can_revoke_organizers"
	PermManageUsers      = "can_manage_users"
	PermManageAdmins     = "can_manage_admins"
	PermExportData       = "can_export_data"
)

// AllPermissions lists every known permission name, in display order.
var AllPermissions = []string{
	PermViewDashboard,
	PermViewAuditLog,
	PermModerateContent,
	PermFlagUsers,
	PermRevokeOrganizers,
	PermManageUsers,
	PermManageAdmins,
	PermExportData,
}

// roleGrants lists the permissions enabled by default for each role type.
// Each role inherits everything granted to the roles below it.
var roleGrants = map[RoleType][]string{
	RoleViewer:     {PermViewDashboard},
	RoleModerator:  {PermViewAuditLog, PermModerateContent, PermFlagUsers},
	RoleAdmin:      {PermRevokeOrganizers, PermManageUsers, PermExportData},
	RoleSuperAdmin: {PermManageAdmins},
}

// Role is an admin role assignment: a role type plus the effective
// permission map (defaults with any overrides applied).
type Role struct {
	ID          uint64          `json:"id"`
	UserID      uint64          `json:"user_id"`
	Type        RoleType        `json:"role_type"`
	Permissions map[string]bool `json:"permissions"`
}

// RoleLevel returns the ordering level of a role type, rejecting unknown
// role names.
func RoleLevel(rt RoleType) (int, error) {
	lvl, ok := roleLevels[rt]
	if !ok {
		return 0, fmt.Errorf("unknown role type: %s", rt)
	}
	return lvl, nil
}

// HasHigherOrEqualRole reports whether role type a ranks at least as high as
// b. Reflexive for every valid role type.
func HasHigherOrEqualRole(a, b RoleType) (bool, error) {
	la, err := RoleLevel(a)
	if err != nil {
		return false, err
	}
	lb, err := RoleLevel(b)
	if err != nil {
		return false, err
	}
	return la >= lb, nil
}

// DefaultPermissions returns the full permission map for a role type: every
// known permission present, enabled per the role's grants.
func DefaultPermissions(rt RoleType) (map[string]bool, error) {
	lvl, err := RoleLevel(rt)
	if err != nil {
		return nil, err
	}
	perms := make(map[string]bool, len(AllPermissions))
	for _, p := range AllPermissions {
		perms[p] = false
	}
	for grantRole, grants := range roleGrants {
		if roleLevels[grantRole] > lvl {
			continue
		}
		for _, p := range grants {
			perms[p] = true
		}
	}
	return perms, nil
}

// NewRole builds a role with default permissions for the type, selectively
// overridden. Unknown override names are rejected.
func NewRole(userID uint64, rt RoleType, overrides map[string]bool) (*Role, error) {
	perms, err := DefaultPermissions(rt)
	if err != nil {
		return nil, err
	}
	for name, val := range overrides {
		if _, ok := perms[name]; !ok {
			return nil, fmt.Errorf("unknown permission: %s", name)
		}
		perms[name] = val
	}
	return &Role{
		UserID:      userID,
		Type:        rt,
		Permissions: perms,
	}, nil
}
