package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hackforge/sentinel/countstore"
	"github.com/hackforge/sentinel/models"
	"github.com/hackforge/sentinel/trust"
)

const autoFlagCounter = "auto-flag"

// ScoreSubject recomputes and persists the trust score for a regular user.
func (eng *Engine) ScoreSubject(ctx context.Context, subjectID uint64) (*trust.ScoreResult, error) {
	factors, err := eng.subjectFactorsCached(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("fetching subject factors: %w", err)
	}
	res, err := trust.CalculateSubjectScore(factors)
	if err != nil {
		return nil, err
	}
	if err := eng.Store.UpsertScore(ctx, subjectID, res); err != nil {
		return nil, fmt.Errorf("persisting score snapshot: %w", err)
	}
	scoreCalcCount.WithLabelValues(string(trust.KindSubject)).Inc()
	eng.Logger.Debug("subject score recomputed", "subject", subjectID, "score", res.Score)
	return res, nil
}

// ScoreOrganizer recomputes and persists the trust score for an organizer,
// then evaluates the automatic flag conditions against the same factor
// snapshot. A triggered auto-flag is applied best-effort: it is skipped when
// the organizer is already flagged or when the daily auto-flag quota is
// exhausted, and an auto-flag failure never fails the score calculation the
// caller asked for.
func (eng *Engine) ScoreOrganizer(ctx context.Context, organizerID uint64) (*trust.ScoreResult, error) {
	factors, err := eng.organizerFactorsCached(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("fetching organizer factors: %w", err)
	}
	res, err := trust.CalculateOrganizerScore(factors)
	if err != nil {
		return nil, err
	}
	if err := eng.Store.UpsertScore(ctx, organizerID, res); err != nil {
		return nil, fmt.Errorf("persisting score snapshot: %w", err)
	}
	scoreCalcCount.WithLabelValues(string(trust.KindOrganizer)).Inc()

	if af := trust.EvaluateAutoFlag(eng.AutoFlag, factors); af.ShouldFlag {
		if err := eng.applyAutoFlag(ctx, organizerID, af); err != nil {
			eng.Logger.Error("applying auto-flag", "organizer", organizerID, "err", err)
		}
	}
	return res, nil
}

func (eng *Engine) applyAutoFlag(ctx context.Context, organizerID uint64, af *trust.AutoFlagResult) error {
	existing, err := eng.Flags.Get(ctx, organizerID)
	if err != nil {
		return fmt.Errorf("reading flag state: %w", err)
	}
	if existing != nil {
		autoFlagCount.WithLabelValues("already_flagged").Inc()
		return nil
	}

	// circuit breaker: bound the daily volume of automated flags
	count, err := eng.Counters.GetCount(ctx, autoFlagCounter, "global", countstore.PeriodDay)
	if err != nil {
		return fmt.Errorf("reading auto-flag quota counter: %w", err)
	}
	if count >= eng.Quotas.AutoFlagDay {
		eng.Logger.Warn("auto-flag quota exceeded, skipping flag",
			"organizer", organizerID, "count", count, "quota", eng.Quotas.AutoFlagDay)
		autoFlagCount.WithLabelValues("quota_suppressed").Inc()
		return nil
	}

	now := time.Now().UTC()
	reason := "auto-flag: " + af.Reason
	if err := eng.Flags.Set(ctx, organizerID, reason, now); err != nil {
		return fmt.Errorf("setting flag state: %w", err)
	}
	if err := eng.Counters.Increment(ctx, autoFlagCounter, "global"); err != nil {
		eng.Logger.Error("incrementing auto-flag counter", "err", err)
	}
	eng.PurgeFactorCaches(ctx, organizerID)

	evidence := marshalState(map[string]any{
		"rejection_count": af.RejectionCount,
		"violation_count": af.ViolationCount,
		"threshold":       af.Threshold,
	})
	if err := eng.Store.WriteAuditEntry(ctx, &models.AuditLogEntry{
		ActionType:  models.AuditActionAutoFlag,
		ActorEmail:  "system",
		TargetType:  "organizer",
		TargetID:    organizerID,
		Reason:      reason,
		BeforeState: marshalState(map[string]any{"is_flagged": false}),
		AfterState:  marshalState(map[string]any{"is_flagged": true, "flag_reason": reason}),
		CreatedAt:   now,
	}); err != nil {
		return fmt.Errorf("writing auto-flag audit entry: %w", err)
	}
	if err := eng.Store.WriteEvent(ctx, &models.ActivityEvent{
		Type:       models.EventTypeModeration,
		TargetType: "organizer",
		TargetID:   organizerID,
		Action:     "auto_flagged",
		Metadata:   evidence,
		Severity:   models.SeverityWarning,
		OccurredAt: now,
	}); err != nil {
		return fmt.Errorf("writing auto-flag activity event: %w", err)
	}

	autoFlagCount.WithLabelValues("applied").Inc()
	eng.Logger.Warn("organizer auto-flagged", "organizer", organizerID, "reason", af.Reason)
	eng.notifySlack(ctx, fmt.Sprintf("⚠️ Auto-flagged organizer %d: %s", organizerID, af.Reason))
	return nil
}
