package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRole(t *testing.T, rt RoleType, overrides map[string]bool) *Role {
	t.Helper()
	r, err := NewRole(42, rt, overrides)
	require.NoError(t, err)
	return r
}

func TestRoleLevelsTotalOrder(t *testing.T) {
	assert := assert.New(t)

	ordered := []RoleType{RoleViewer, RoleModerator, RoleAdmin, RoleSuperAdmin}
	prev := 0
	for _, rt := range ordered {
		lvl, err := RoleLevel(rt)
		assert.NoError(err)
		assert.Greater(lvl, prev)
		prev = lvl

		// reflexive
		ok, err := HasHigherOrEqualRole(rt, rt)
		assert.NoError(err)
		assert.True(ok)
	}

	ok, err := HasHigherOrEqualRole(RoleAdmin, RoleModerator)
	assert.NoError(err)
	assert.True(ok)

	ok, err = HasHigherOrEqualRole(RoleViewer, RoleSuperAdmin)
	assert.NoError(err)
	assert.False(ok)

	_, err = RoleLevel(RoleType("intern"))
	assert.ErrorContains(err, "unknown role type: intern")
}

func TestDefaultPermissions(t *testing.T) {
	assert := assert.New(t)

	viewer, err := DefaultPermissions(RoleViewer)
	require.NoError(t, err)
	enabled := 0
	for _, v := range viewer {
		if v {
			enabled++
		}
	}
	assert.Equal(1, enabled, "viewer has exactly one permission enabled")
	assert.True(viewer[PermViewDashboard])

	super, err := DefaultPermissions(RoleSuperAdmin)
	require.NoError(t, err)
	for _, p := range AllPermissions {
		assert.True(super[p], "super_admin missing %s", p)
	}

	admin, err := DefaultPermissions(RoleAdmin)
	require.NoError(t, err)
	assert.True(admin[PermRevokeOrganizers])
	assert.False(admin[PermManageAdmins])

	mod, err := DefaultPermissions(RoleModerator)
	require.NoError(t, err)
	assert.True(mod[PermFlagUsers])
	assert.False(mod[PermRevokeOrganizers])
}

func TestCheckPermission(t *testing.T) {
	assert := assert.New(t)

	// absent role denies everything, with the same reason
	for _, p := range AllPermissions {
		dec, err := CheckPermission(nil, p)
		assert.NoError(err)
		assert.False(dec.Allowed)
		assert.Equal(ReasonNoRole, dec.Reason)
	}

	mod := mustRole(t, RoleModerator, nil)
	dec, err := CheckPermission(mod, PermFlagUsers)
	assert.NoError(err)
	assert.True(dec.Allowed)
	assert.Equal(ReasonGranted, dec.Reason)

	dec, err = CheckPermission(mod, PermRevokeOrganizers)
	assert.NoError(err)
	assert.False(dec.Allowed)
	assert.Equal("Permission denied: can_revoke_organizers", dec.Reason)

	_, err = CheckPermission(mod, "can_fly")
	assert.ErrorContains(err, "unknown permission: can_fly")
}

func TestCheckAnyAll(t *testing.T) {
	assert := assert.New(t)
	mod := mustRole(t, RoleModerator, nil)

	ok, err := CheckAny(mod, []string{PermRevokeOrganizers, PermFlagUsers})
	assert.NoError(err)
	assert.True(ok)

	ok, err = CheckAny(mod, []string{PermRevokeOrganizers, PermManageAdmins})
	assert.NoError(err)
	assert.False(ok)

	ok, err = CheckAll(mod, []string{PermViewDashboard, PermFlagUsers})
	assert.NoError(err)
	assert.True(ok)

	ok, err = CheckAll(mod, []string{PermViewDashboard, PermManageAdmins})
	assert.NoError(err)
	assert.False(ok)

	// vacuous truth on the empty list
	ok, err = CheckAll(mod, nil)
	assert.NoError(err)
	assert.True(ok)

	ok, err = CheckAny(mod, nil)
	assert.NoError(err)
	assert.False(ok)
}

func TestCanManageAdminRole(t *testing.T) {
	assert := assert.New(t)

	super := mustRole(t, RoleSuperAdmin, nil)
	admin := mustRole(t, RoleAdmin, nil)
	target := mustRole(t, RoleModerator, nil)
	superTarget := mustRole(t, RoleSuperAdmin, nil)

	dec, err := CanManageAdminRole(nil, target)
	assert.NoError(err)
	assert.False(dec.Allowed)
	assert.Equal(ReasonNoRole, dec.Reason)

	// admin lacks can_manage_admins by default
	dec, err = CanManageAdminRole(admin, target)
	assert.NoError(err)
	assert.False(dec.Allowed)

	// granting the permission lets an admin manage ordinary roles...
	granted := mustRole(t, RoleAdmin, map[string]bool{PermManageAdmins: true})
	dec, err = CanManageAdminRole(granted, target)
	assert.NoError(err)
	assert.True(dec.Allowed)

	// ...but never a super_admin target: the carve-out overrides the grant
	dec, err = CanManageAdminRole(granted, superTarget)
	assert.NoError(err)
	assert.False(dec.Allowed)
	assert.Contains(dec.Reason, "super_admin")

	dec, err = CanManageAdminRole(super, superTarget)
	assert.NoError(err)
	assert.True(dec.Allowed)

	// nil target: plain permission check
	dec, err = CanManageAdminRole(super, nil)
	assert.NoError(err)
	assert.True(dec.Allowed)
}

func TestNewRoleOverrides(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRole(7, RoleViewer, map[string]bool{PermViewAuditLog: true})
	assert.NoError(err)
	assert.True(r.Permissions[PermViewAuditLog])
	assert.True(r.Permissions[PermViewDashboard])

	_, err = NewRole(7, RoleViewer, map[string]bool{"can_teleport": true})
	assert.ErrorContains(err, "unknown permission: can_teleport")
}
