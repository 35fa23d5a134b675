package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
)

func TestFlagAndUnflag(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)
	admin := testAdmin(t, rbac.RoleModerator)

	state, err := eng.Flag(ctx, 5, "harassment reports", admin)
	require.NoError(t, err)
	assert.Equal("harassment reports", state.Reason)

	flag, err := eng.Flags.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, flag)

	require.Len(t, store.AuditLog, 1)
	entry := store.AuditLog[0]
	assert.Equal(models.AuditActionUserFlag, entry.ActionType)
	assert.Equal(admin.Email, entry.ActorEmail)

	// the event metadata carries the field-level diff
	require.Len(t, store.Events, 1)
	var meta struct {
		Reason  string            `json:"reason"`
		Changes []json.RawMessage `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(store.Events[0].Metadata, &meta))
	assert.Equal("harassment reports", meta.Reason)
	assert.Len(meta.Changes, 2)

	require.NoError(t, eng.Unflag(ctx, 5, "reports dismissed", admin))
	flag, err = eng.Flags.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(flag)
	assert.Len(store.AuditLog, 2)
	assert.Equal(models.AuditActionUserUnflag, store.AuditLog[1].ActionType)
}

func TestFlagIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)
	admin := testAdmin(t, rbac.RoleModerator)

	first, err := eng.Flag(ctx, 5, "spam", admin)
	require.NoError(t, err)
	second, err := eng.Flag(ctx, 5, "different reason", admin)
	require.NoError(t, err)

	// re-flagging returns the existing state and writes nothing
	assert.Equal(first.Reason, second.Reason)
	assert.Len(store.AuditLog, 1)
}

func TestUnflagCleanSubjectIsNoop(t *testing.T) {
	ctx := context.Background()

	eng := EngineTestFixture()
	store := eng.Store.(*MemStore)

	require.NoError(t, eng.Unflag(ctx, 5, "nothing to do", testAdmin(t, rbac.RoleModerator)))
	assert.Empty(t, store.AuditLog)
}

func TestFlagPermissionAndReason(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng := EngineTestFixture()

	_, err := eng.Flag(ctx, 5, "spam", testAdmin(t, rbac.RoleViewer))
	assert.ErrorIs(err, ErrPermissionDenied)

	_, err = eng.Flag(ctx, 5, "spam", AdminActor{UserID: 9, Email: "x@example.com"})
	assert.ErrorIs(err, ErrPermissionDenied)

	_, err = eng.Flag(ctx, 5, "", testAdmin(t, rbac.RoleModerator))
	assert.ErrorIs(err, ErrEmptyReason)
}
