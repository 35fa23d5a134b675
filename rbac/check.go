package rbac

import (
	"fmt"
)

const (
	ReasonNoRole  = "No admin role assigned"
	ReasonGranted = "Permission granted"
)

// Decision is an allow/deny outcome plus a human-readable reason. Checks
// always return a decision for well-formed permission names, including the
// "no role" case.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func validatePermission(perm string) error {
	for _, p := range AllPermissions {
		if p == perm {
			return nil
		}
	}
	return fmt.Errorf("unknown permission: %s", perm)
}

// CheckPermission decides whether a role grants the named permission. A nil
// role denies every permission with the same reason. Unknown permission
// names are an error, never a silent deny.
func CheckPermission(role *Role, perm string) (Decision, error) {
	if err := validatePermission(perm); err != nil {
		return Decision{}, err
	}
	if role == nil {
		return Decision{Allowed: false, Reason: ReasonNoRole}, nil
	}
	if role.Permissions[perm] {
		return Decision{Allowed: true, Reason: ReasonGranted}, nil
	}
	return Decision{Allowed: false, Reason: fmt.Sprintf("Permission denied: %s", perm)}, nil
}

// CheckAny reports whether at least one of the listed permissions is
// granted. False for an empty list.
func CheckAny(role *Role, perms []string) (bool, error) {
	for _, p := range perms {
		dec, err := CheckPermission(role, p)
		if err != nil {
			return false, err
		}
		if dec.Allowed {
			return true, nil
		}
	}
	return false, nil
}

// CheckAll reports whether every listed permission is granted. Vacuously
// true for an empty list.
func CheckAll(role *Role, perms []string) (bool, error) {
	for _, p := range perms {
		dec, err := CheckPermission(role, p)
		if err != nil {
			return false, err
		}
		if !dec.Allowed {
			return false, nil
		}
	}
	return true, nil
}

// CanManageAdminRole decides whether the acting role may manage the target
// role. A super_admin target is manageable only by a super_admin actor; that
// rule is evaluated first and overrides the general can_manage_admins check.
// A nil target means the check is for creating a new role assignment.
func CanManageAdminRole(acting *Role, target *Role) (Decision, error) {
	if acting == nil {
		return Decision{Allowed: false, Reason: ReasonNoRole}, nil
	}
	if target != nil && target.Type == RoleSuperAdmin && acting.Type != RoleSuperAdmin {
		return Decision{
			Allowed: false,
			Reason:  "Permission denied: only a super_admin may manage a super_admin role",
		}, nil
	}
	return CheckPermission(acting, PermManageAdmins)
}
