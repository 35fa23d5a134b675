package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
)

func testAdmin(t *testing.T, roleType rbac.RoleType) AdminActor {
	t.Helper()
	role, err := rbac.NewRole(42, roleType, nil)
	require.NoError(t, err)
	return AdminActor{UserID: 42, Email: "admin@example.com", Role: role}
}

func seedOrganizerWithHackathons(store *MemStore, organizerID uint64, n int) {
	for i := 1; i <= n; i++ {
		id := uint64(i)
		store.Hackathons[id] = &models.Hackathon{
			ID:               id,
			OrganizerID:      organizerID,
			Title:            "hack " + string(rune('a'+i-1)),
			Status:           models.HackathonStatusPublished,
			ParticipantCount: 10 * i,
		}
	}
}

func TestRevokeCascade(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)
	seedOrganizerWithHackathons(store, 7, 3)

	res, err := eng.Revoke(ctx, 7, "fraudulent events", testAdmin(t, rbac.RoleAdmin))
	require.NoError(t, err)

	assert.True(res.Success)
	assert.Equal(uint64(7), res.SubjectID)
	assert.Equal(3, res.AffectedCount)
	assert.Equal(10+20+30, res.NotifiedCount)
	assert.Empty(res.Failures)

	for id := uint64(1); id <= 3; id++ {
		assert.Equal(models.HackathonStatusUnpublished, store.Hackathons[id].Status)
	}

	flag, err := eng.Flags.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, flag)
	assert.Equal("Organizer revoked: fraudulent events", flag.Reason)

	// one audit entry per unpublished hackathon plus the revocation summary
	assert.Len(store.AuditLog, 4)
	summary := store.AuditLog[len(store.AuditLog)-1]
	assert.Equal(models.AuditActionOrganizerRevoke, summary.ActionType)
	assert.Equal(uint64(42), summary.ActorID)

	var critical int
	for _, evt := range store.Events {
		if evt.Severity == models.SeverityCritical {
			critical++
		}
	}
	assert.Equal(1, critical)
}

func TestRevokePartialCascadeFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)
	seedOrganizerWithHackathons(store, 7, 3)
	store.FailTransitions[2] = errors.New("deadlock detected")

	res, err := eng.Revoke(ctx, 7, "fraudulent events", testAdmin(t, rbac.RoleAdmin))
	require.NoError(t, err)

	// the operation still succeeds; the one failed transition is reported
	assert.True(res.Success)
	assert.Equal(2, res.AffectedCount)
	assert.Equal(10+30, res.NotifiedCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(uint64(2), res.Failures[0].HackathonID)
	assert.Equal("transition", res.Failures[0].Stage)

	assert.Equal(models.HackathonStatusPublished, store.Hackathons[2].Status)

	// two per-item entries plus the summary
	assert.Len(store.AuditLog, 3)

	flag, err := eng.Flags.Get(ctx, 7)
	require.NoError(t, err)
	assert.NotNil(flag)
}

func TestRevokeNoDependents(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)

	res, err := eng.Revoke(ctx, 9, "spam", testAdmin(t, rbac.RoleAdmin))
	require.NoError(t, err)

	assert.True(res.Success)
	assert.Equal(0, res.AffectedCount)
	assert.Equal(0, res.NotifiedCount)
	assert.Len(store.AuditLog, 1)
}

func TestRevokePermissionDenied(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)
	seedOrganizerWithHackathons(store, 7, 2)

	_, err := eng.Revoke(ctx, 7, "spam", testAdmin(t, rbac.RoleViewer))
	assert.ErrorIs(err, ErrPermissionDenied)

	var perr *PermissionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(rbac.PermRevokeOrganizers, perr.Permission)

	// nothing happened
	assert.Equal(models.HackathonStatusPublished, store.Hackathons[1].Status)
	assert.Empty(store.AuditLog)
	flag, err := eng.Flags.Get(ctx, 7)
	require.NoError(t, err)
	assert.Nil(flag)
}

func TestRevokeEmptyReason(t *testing.T) {
	eng := EngineTestFixture()
	_, err := eng.Revoke(context.Background(), 7, "", testAdmin(t, rbac.RoleAdmin))
	assert.ErrorIs(t, err, ErrEmptyReason)
}

func TestRevokeAlreadyFlagged(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	require.NoError(t, eng.Flags.Set(ctx, 7, "earlier flag", time.Now().UTC()))

	res, err := eng.Revoke(ctx, 7, "fraudulent events", testAdmin(t, rbac.RoleAdmin))
	require.NoError(t, err)
	assert.True(res.Success)

	// revocation replaces the flag reason
	flag, err := eng.Flags.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal("Organizer revoked: fraudulent events", flag.Reason)
}
