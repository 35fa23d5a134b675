package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hackforge/sentinel/audit"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/rbac"
)

// CascadeFailure records one dependent entity whose state transition (or
// follow-up bookkeeping) failed during a revocation cascade.
type CascadeFailure struct {
	HackathonID uint64 `json:"hackathon_id"`
	Stage       string `json:"stage"`
	Err         string `json:"error"`
}

// RevocationResult summarizes a completed revocation. Success means the core
// writes landed; individual cascade failures are reported in Failures and
// reflected in the counts, they do not fail the operation.
type RevocationResult struct {
	SubjectID     uint64           `json:"subject_id"`
	AffectedCount int              `json:"affected_count"`
	NotifiedCount int              `json:"notified_count"`
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	Failures      []CascadeFailure `json:"failures,omitempty"`
}

// Revoke strips an organizer's standing: every currently published hackathon
// of theirs is unpublished (each attempt isolated, failures collected), the
// organizer is flagged, and the whole operation is recorded in the audit log
// and activity feed. Only failures of the core writes (dependent load, flag
// update, summary records) abort the run; cascade failures degrade the
// counts and nothing else.
func (eng *Engine) Revoke(ctx context.Context, organizerID uint64, reason string, admin AdminActor) (*RevocationResult, error) {
	if err := eng.requirePermission(admin, rbac.PermRevokeOrganizers); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, ErrEmptyReason
	}

	start := time.Now()
	defer func() {
		revokeDuration.Observe(time.Since(start).Seconds())
	}()

	logger := eng.Logger.With("organizer", organizerID, "actor", admin.UserID)

	dependents, err := eng.Store.ListActiveDependents(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("loading active dependents: %w", err)
	}

	priorFlag, err := eng.Flags.Get(ctx, organizerID)
	if err != nil {
		logger.Warn("reading prior flag state", "err", err)
	}

	res := &RevocationResult{SubjectID: organizerID}
	unpublished := make([]*models.Hackathon, 0, len(dependents))
	for _, dep := range dependents {
		trans, err := eng.Store.TransitionHackathonState(ctx, dep.ID, models.HackathonStatusUnpublished)
		if err != nil {
			logger.Error("unpublishing hackathon", "hackathon", dep.ID, "err", err)
			cascadeItemCount.WithLabelValues("failed").Inc()
			res.Failures = append(res.Failures, CascadeFailure{
				HackathonID: dep.ID,
				Stage:       "transition",
				Err:         err.Error(),
			})
			continue
		}
		res.AffectedCount++
		res.NotifiedCount += dep.ParticipantCount
		unpublished = append(unpublished, dep)
		cascadeItemCount.WithLabelValues("unpublished").Inc()

		// the per-item records are bookkeeping for an already-applied
		// transition: their failure is reported but does not undo the count
		if err := eng.writeCascadeRecords(ctx, admin, dep, trans, reason); err != nil {
			logger.Error("recording hackathon unpublish", "hackathon", dep.ID, "err", err)
			res.Failures = append(res.Failures, CascadeFailure{
				HackathonID: dep.ID,
				Stage:       "record",
				Err:         err.Error(),
			})
		}
	}

	// flag and summary records depend on the cascade outcome, so they run
	// strictly after it; their failure is fatal to the operation
	now := time.Now().UTC()
	flagReason := fmt.Sprintf("Organizer revoked: %s", reason)
	if err := eng.Flags.Set(ctx, organizerID, flagReason, now); err != nil {
		return nil, fmt.Errorf("flagging revoked organizer: %w", err)
	}
	eng.PurgeFactorCaches(ctx, organizerID)

	before := map[string]any{
		"active_hackathons": len(dependents),
		"is_flagged":        priorFlag != nil,
	}
	after := map[string]any{
		"active_hackathons": len(dependents) - res.AffectedCount,
		"is_flagged":        true,
		"flag_reason":       flagReason,
		"affected_count":    res.AffectedCount,
		"notified_count":    res.NotifiedCount,
	}
	if err := eng.Store.WriteAuditEntry(ctx, &models.AuditLogEntry{
		ActionType:  models.AuditActionOrganizerRevoke,
		ActorID:     admin.UserID,
		ActorEmail:  admin.Email,
		TargetType:  "organizer",
		TargetID:    organizerID,
		Reason:      reason,
		BeforeState: marshalState(before),
		AfterState:  marshalState(after),
		CreatedAt:   now,
	}); err != nil {
		return nil, fmt.Errorf("writing revocation audit entry: %w", err)
	}
	actorID := admin.UserID
	if err := eng.Store.WriteEvent(ctx, &models.ActivityEvent{
		Type:       models.EventTypeModeration,
		ActorID:    &actorID,
		TargetType: "organizer",
		TargetID:   organizerID,
		Action:     "revoked",
		Metadata:   marshalState(map[string]any{"reason": reason, "changes": audit.Diff(before, after).Entries}),
		Severity:   models.SeverityCritical,
		OccurredAt: now,
	}); err != nil {
		return nil, fmt.Errorf("writing revocation activity event: %w", err)
	}

	if eng.Notifier != nil && len(unpublished) > 0 {
		if err := eng.Notifier.NotifyAffected(ctx, organizerID, unpublished); err != nil {
			logger.Error("notifying affected participants", "err", err)
		}
	}

	res.Success = true
	res.Message = fmt.Sprintf("revoked organizer %d: unpublished %d of %d hackathons, %d participants affected",
		organizerID, res.AffectedCount, len(dependents), res.NotifiedCount)
	revocationCount.Inc()
	logger.Warn("organizer revoked",
		"affected", res.AffectedCount, "notified", res.NotifiedCount, "failures", len(res.Failures))
	eng.notifySlack(ctx, fmt.Sprintf("🚫 %s (by %s)", res.Message, admin.Email))
	return res, nil
}

// writeCascadeRecords emits the audit entry and warning activity event for
// one successfully unpublished hackathon.
func (eng *Engine) writeCascadeRecords(ctx context.Context, admin AdminActor, dep *models.Hackathon, trans *StateTransition, reason string) error {
	now := time.Now().UTC()
	if err := eng.Store.WriteAuditEntry(ctx, &models.AuditLogEntry{
		ActionType:  models.AuditActionHackathonUnpublish,
		ActorID:     admin.UserID,
		ActorEmail:  admin.Email,
		TargetType:  "hackathon",
		TargetID:    dep.ID,
		Reason:      fmt.Sprintf("organizer revoked: %s", reason),
		BeforeState: marshalState(trans.Before),
		AfterState:  marshalState(trans.After),
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}

	diff := audit.Diff(trans.Before, trans.After)
	actorID := admin.UserID
	if err := eng.Store.WriteEvent(ctx, &models.ActivityEvent{
		Type:       models.EventTypeModeration,
		ActorID:    &actorID,
		TargetType: "hackathon",
		TargetID:   dep.ID,
		TargetName: dep.Title,
		Action:     "unpublished",
		Metadata:   marshalState(map[string]any{"changes": diff.Entries}),
		Severity:   models.SeverityWarning,
		OccurredAt: now,
	}); err != nil {
		return fmt.Errorf("writing activity event: %w", err)
	}
	return nil
}
