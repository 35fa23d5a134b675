package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hackforge/sentinel/audit"
	"github.com/hackforge/sentinel/flagstore"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
)

// Flag explicitly flags a subject. Flagging an already-flagged subject is a
// no-op returning the existing state.
func (eng *Engine) Flag(ctx context.Context, subjectID uint64, reason string, admin AdminActor) (*flagstore.State, error) {
	if err := eng.requirePermission(admin, rbac.PermFlagUsers); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, ErrEmptyReason
	}

	existing, err := eng.Flags.Get(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("reading flag state: %w", err)
	}
	if existing != nil {
		eng.Logger.Info("subject already flagged", "subject", subjectID)
		return existing, nil
	}

	now := time.Now().UTC()
	if err := eng.Flags.Set(ctx, subjectID, reason, now); err != nil {
		return nil, fmt.Errorf("setting flag state: %w", err)
	}
	eng.PurgeFactorCaches(ctx, subjectID)

	before := map[string]any{"is_flagged": false}
	after := map[string]any{"is_flagged": true, "flag_reason": reason}
	if err := eng.writeModerationRecords(ctx, admin, models.AuditActionUserFlag, "user", subjectID,
		reason, before, after, "flagged", models.SeverityWarning); err != nil {
		return nil, err
	}

	flagActionCount.WithLabelValues("flag").Inc()
	return &flagstore.State{Reason: reason, FlaggedAt: now}, nil
}

// Unflag clears a subject's flag state. Unflagging a clean subject is a
// no-op.
func (eng *Engine) Unflag(ctx context.Context, subjectID uint64, reason string, admin AdminActor) error {
	if err := eng.requirePermission(admin, rbac.PermFlagUsers); err != nil {
		return err
	}
	if reason == "" {
		return ErrEmptyReason
	}

	existing, err := eng.Flags.Get(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("reading flag state: %w", err)
	}
	if existing == nil {
		eng.Logger.Info("subject not flagged, nothing to clear", "subject", subjectID)
		return nil
	}

	if err := eng.Flags.Clear(ctx, subjectID); err != nil {
		return fmt.Errorf("clearing flag state: %w", err)
	}
	eng.PurgeFactorCaches(ctx, subjectID)

	before := map[string]any{"is_flagged": true, "flag_reason": existing.Reason}
	after := map[string]any{"is_flagged": false}
	if err := eng.writeModerationRecords(ctx, admin, models.AuditActionUserUnflag, "user", subjectID,
		reason, before, after, "unflagged", models.SeverityWarning); err != nil {
		return err
	}

	flagActionCount.WithLabelValues("unflag").Inc()
	return nil
}

// writeModerationRecords emits the audit entry and activity event pair for a
// single moderation state change. The activity event metadata carries the
// field-level diff of the change.
func (eng *Engine) writeModerationRecords(ctx context.Context, admin AdminActor, actionType, targetType string,
	targetID uint64, reason string, before, after map[string]any, action, severity string) error {

	now := time.Now().UTC()
	if err := eng.Store.WriteAuditEntry(ctx, &models.AuditLogEntry{
		ActionType:  actionType,
		ActorID:     admin.UserID,
		ActorEmail:  admin.Email,
		TargetType:  targetType,
		TargetID:    targetID,
		Reason:      reason,
		BeforeState: marshalState(before),
		AfterState:  marshalState(after),
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}

	diff := audit.Diff(before, after)
	actorID := admin.UserID
	if err := eng.Store.WriteEvent(ctx, &models.ActivityEvent{
		Type:       models.EventTypeModeration,
		ActorID:    &actorID,
		TargetType: targetType,
		TargetID:   targetID,
		Action:     action,
		Metadata:   marshalState(map[string]any{"reason": reason, "changes": diff.Entries}),
		Severity:   severity,
		OccurredAt: now,
	}); err != nil {
		return fmt.Errorf("writing activity event: %w", err)
	}
	return nil
}
