package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackforge/sentinel/engine"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
	"github.com/hackforge/sentinel/trust"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestSubjectFactorAggregation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	created := time.Now().UTC().Add(-90 * 24 * time.Hour)
	require.NoError(t, s.db.Create(&models.User{
		ID: 5, Email: "u@example.com", EmailVerified: true, CreatedAt: created,
	}).Error)

	// two completed registrations, one still active
	for i, status := range []string{
		models.RegistrationStatusCompleted,
		models.RegistrationStatusCompleted,
		models.RegistrationStatusActive,
	} {
		require.NoError(t, s.db.Create(&models.Registration{
			UserID: 5, HackathonID: uint64(i + 1), Status: status, CreatedAt: created,
		}).Error)
	}
	// one valid report filed, one dismissed; two reports received
	require.NoError(t, s.db.Create(&models.Report{
		ReporterID: 5, TargetID: 9, Status: models.ReportStatusValid, CreatedAt: created,
	}).Error)
	require.NoError(t, s.db.Create(&models.Report{
		ReporterID: 5, TargetID: 9, Status: models.ReportStatusDismissed, CreatedAt: created,
	}).Error)
	require.NoError(t, s.db.Create(&models.Report{
		ReporterID: 9, TargetID: 5, Status: models.ReportStatusPending, CreatedAt: created,
	}).Error)
	require.NoError(t, s.db.Create(&models.Report{
		ReporterID: 8, TargetID: 5, Status: models.ReportStatusValid, CreatedAt: created,
	}).Error)
	// one moderation action against the user; revocation audit rows for
	// other targets don't count
	require.NoError(t, s.db.Create(&models.AuditLogEntry{
		ActionType: models.AuditActionUserWarning, ActorID: 1, TargetType: "user", TargetID: 5,
		Reason: "spam", CreatedAt: created,
	}).Error)
	require.NoError(t, s.db.Create(&models.AuditLogEntry{
		ActionType: models.AuditActionOrganizerRevoke, ActorID: 1, TargetType: "organizer", TargetID: 5,
		Reason: "fraud", CreatedAt: created,
	}).Error)

	f, err := s.SubjectFactors(ctx, 5)
	require.NoError(t, err)
	assert.Equal(90, f.AccountAgeDays)
	assert.Equal(2, f.SuccessfulEvents)
	assert.Equal(1, f.ValidReportsFiled)
	assert.Equal(2, f.ReportsReceived)
	assert.Equal(1, f.ModerationActions)
	assert.True(f.IdentityVerified)
}

func TestOrganizerFactorAggregation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	created := time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, s.db.Create(&models.User{
		ID: 7, Email: "org@example.com", IsOrganizer: true, CreatedAt: created,
	}).Error)

	hacks := []models.Hackathon{
		{ID: 1, OrganizerID: 7, Title: "a", Status: models.HackathonStatusApproved, ParticipantCount: 40, CreatedAt: created},
		{ID: 2, OrganizerID: 7, Title: "b", Status: models.HackathonStatusApproved, ParticipantCount: 30, CreatedAt: created},
		{ID: 3, OrganizerID: 7, Title: "c", Status: models.HackathonStatusRejected, ParticipantCount: 0, CreatedAt: created},
		{ID: 4, OrganizerID: 7, Title: "d", Status: models.HackathonStatusPublished, ParticipantCount: 25, CreatedAt: created},
		{ID: 5, OrganizerID: 8, Title: "e", Status: models.HackathonStatusApproved, ParticipantCount: 99, CreatedAt: created},
	}
	for i := range hacks {
		require.NoError(t, s.db.Create(&hacks[i]).Error)
	}
	require.NoError(t, s.db.Create(&models.AuditLogEntry{
		ActionType: models.AuditActionViolationIssued, ActorID: 1, TargetType: "organizer", TargetID: 7,
		Reason: "misleading prizes", CreatedAt: created,
	}).Error)

	f, err := s.OrganizerFactors(ctx, 7)
	require.NoError(t, err)
	assert.Equal(30, f.AccountAgeDays)
	assert.Equal(4, f.TotalHackathons)
	assert.Equal(2, f.ApprovedHackathons)
	assert.Equal(1, f.RejectedHackathons)
	assert.Equal(95, f.TotalParticipants)
	assert.Equal(1, f.Violations)
}

func TestUpsertScoreReplaces(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	first, err := trust.CalculateSubjectScore(&trust.SubjectFactors{AccountAgeDays: 30})
	require.NoError(t, err)
	require.NoError(t, s.UpsertScore(ctx, 5, first))

	second, err := trust.CalculateSubjectScore(&trust.SubjectFactors{AccountAgeDays: 300, IdentityVerified: true})
	require.NoError(t, err)
	require.NoError(t, s.UpsertScore(ctx, 5, second))

	snap, err := s.GetScore(ctx, 5, trust.KindSubject)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(second.Score, snap.Score)

	var count int64
	require.NoError(t, s.db.Model(&models.ScoreSnapshot{}).Count(&count).Error)
	assert.EqualValues(1, count)

	missing, err := s.GetScore(ctx, 5, trust.KindOrganizer)
	require.NoError(t, err)
	assert.Nil(missing)
}

func TestQueryEventsCursorPaging(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 7; i++ {
		require.NoError(t, s.WriteEvent(ctx, &models.ActivityEvent{
			Type:       models.EventTypeReportFiled,
			TargetType: "user",
			TargetID:   9,
			Action:     "filed",
			Severity:   models.SeverityInfo,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	q := engine.EventQuery{Types: []string{models.EventTypeReportFiled}, Limit: 3}
	page1, err := s.QueryEvents(ctx, q)
	require.NoError(t, err)
	require.Len(t, page1.Events, 3)
	assert.True(page1.HasMore)
	// newest first
	assert.True(page1.Events[0].OccurredAt.After(page1.Events[2].OccurredAt))

	q.Cursor = page1.NextCursor
	page2, err := s.QueryEvents(ctx, q)
	require.NoError(t, err)
	require.Len(t, page2.Events, 3)
	assert.True(page2.HasMore)
	assert.True(page1.Events[2].OccurredAt.After(page2.Events[0].OccurredAt))

	q.Cursor = page2.NextCursor
	page3, err := s.QueryEvents(ctx, q)
	require.NoError(t, err)
	assert.Len(page3.Events, 1)
	assert.False(page3.HasMore)

	_, err = s.QueryEvents(ctx, engine.EventQuery{Cursor: "bogus"})
	assert.Error(err)
}

func TestFlagStateRoundtrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	state, err := s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(state)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Set(ctx, 5, "spam", now))
	state, err = s.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal("spam", state.Reason)

	// replace keeps a single row
	require.NoError(t, s.Set(ctx, 5, "fraud", now.Add(time.Minute)))
	state, err = s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal("fraud", state.Reason)

	require.NoError(t, s.Clear(ctx, 5))
	state, err = s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(state)

	// clearing again is a no-op
	require.NoError(t, s.Clear(ctx, 5))
}

func TestTransitionHackathonState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.db.Create(&models.Hackathon{
		ID: 1, OrganizerID: 7, Title: "a", Status: models.HackathonStatusPublished, CreatedAt: time.Now().UTC(),
	}).Error)

	trans, err := s.TransitionHackathonState(ctx, 1, models.HackathonStatusUnpublished)
	require.NoError(t, err)
	assert.Equal(map[string]any{"status": models.HackathonStatusPublished}, trans.Before)
	assert.Equal(map[string]any{"status": models.HackathonStatusUnpublished}, trans.After)

	var hack models.Hackathon
	require.NoError(t, s.db.First(&hack, 1).Error)
	assert.Equal(models.HackathonStatusUnpublished, hack.Status)

	_, err = s.TransitionHackathonState(ctx, 99, models.HackathonStatusUnpublished)
	assert.Error(err)
}

func TestAdminRoleRoundtrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := testStore(t)

	missing, err := s.GetAdminRole(ctx, 42)
	require.NoError(t, err)
	assert.Nil(missing)

	role, err := rbac.NewRole(42, rbac.RoleModerator, map[string]bool{rbac.PermExportData: true})
	require.NoError(t, err)
	require.NoError(t, s.PutAdminRole(ctx, role))

	loaded, err := s.GetAdminRole(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(rbac.RoleModerator, loaded.Type)
	assert.True(loaded.Permissions[rbac.PermFlagUsers])
	assert.True(loaded.Permissions[rbac.PermExportData])
	assert.False(loaded.Permissions[rbac.PermManageAdmins])

	// reassignment replaces the row
	promoted, err := rbac.NewRole(42, rbac.RoleAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, s.PutAdminRole(ctx, promoted))
	loaded, err = s.GetAdminRole(ctx, 42)
	require.NoError(t, err)
	assert.Equal(rbac.RoleAdmin, loaded.Type)
}
