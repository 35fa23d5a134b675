package trust

import (
	"time"
)

// Scoring constants. Every term is computed independently, capped at its own
// category limit, then summed with the base; the total is clamped to [0,100].
const (
	BaseScore = 50

	// one age bucket per 30 days of account age
	ageBucketDays = 30

	subjectAgePoints        = 2
	subjectAgeCap           = 20
	subjectEventPoints      = 3
	subjectEventCap         = 15
	subjectReportPoints     = 2
	subjectReportCap        = 10
	subjectReceivedPenalty  = -5
	subjectReceivedFloor    = -25
	subjectModActionPenalty = -10
	subjectModActionFloor   = -30
	subjectVerifiedBonus    = 5

	organizerAgePoints          = 1
	organizerAgeCap             = 10
	organizerApprovedPoints     = 5
	organizerApprovedCap        = 25
	organizerParticipantDivisor = 10 // +0.1 per participant, floored
	organizerParticipantCap     = 15
	organizerRejectedPenalty    = -10
	organizerRejectedFloor      = -30
	organizerViolationPenalty   = -15
	organizerViolationFloor     = -45
)

// cappedTerm computes count*step bounded by limit. The sign of step decides
// whether limit acts as a ceiling (bonus) or a floor (penalty).
func cappedTerm(count, step, limit int) int {
	v := count * step
	if step >= 0 && v > limit {
		return limit
	}
	if step < 0 && v < limit {
		return limit
	}
	return v
}

// CalculateSubjectScore derives a bounded trust score from a subject factor
// snapshot. Deterministic for a given snapshot; errors only on malformed
// (negative) input.
func CalculateSubjectScore(f *SubjectFactors) (*ScoreResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	breakdown := []Contribution{
		{Name: "base", Points: BaseScore},
		{Name: "account_age", Points: cappedTerm(f.AccountAgeDays/ageBucketDays, subjectAgePoints, subjectAgeCap)},
		{Name: "successful_events", Points: cappedTerm(f.SuccessfulEvents, subjectEventPoints, subjectEventCap)},
		{Name: "valid_reports_filed", Points: cappedTerm(f.ValidReportsFiled, subjectReportPoints, subjectReportCap)},
		{Name: "reports_received", Points: cappedTerm(f.ReportsReceived, subjectReceivedPenalty, subjectReceivedFloor)},
		{Name: "moderation_actions", Points: cappedTerm(f.ModerationActions, subjectModActionPenalty, subjectModActionFloor)},
	}
	verified := 0
	if f.IdentityVerified {
		verified = subjectVerifiedBonus
	}
	breakdown = append(breakdown, Contribution{Name: "identity_verified", Points: verified})

	snapshot := *f
	res := finishScore(KindSubject, breakdown)
	res.SubjectFactors = &snapshot
	return res, nil
}

// CalculateOrganizerScore derives a bounded trust score from an organizer
// factor snapshot.
func CalculateOrganizerScore(f *OrganizerFactors) (*ScoreResult, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	breakdown := []Contribution{
		{Name: "base", Points: BaseScore},
		{Name: "account_age", Points: cappedTerm(f.AccountAgeDays/ageBucketDays, organizerAgePoints, organizerAgeCap)},
		{Name: "approved_hackathons", Points: cappedTerm(f.ApprovedHackathons, organizerApprovedPoints, organizerApprovedCap)},
		{Name: "total_participants", Points: cappedTerm(f.TotalParticipants/organizerParticipantDivisor, 1, organizerParticipantCap)},
		{Name: "rejected_hackathons", Points: cappedTerm(f.RejectedHackathons, organizerRejectedPenalty, organizerRejectedFloor)},
		{Name: "violations", Points: cappedTerm(f.Violations, organizerViolationPenalty, organizerViolationFloor)},
	}

	snapshot := *f
	res := finishScore(KindOrganizer, breakdown)
	res.OrganizerFactors = &snapshot
	return res, nil
}

func finishScore(kind ScoreKind, breakdown []Contribution) *ScoreResult {
	raw := 0
	for _, c := range breakdown {
		raw += c.Points
	}
	score := raw
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if score != raw {
		breakdown = append(breakdown, Contribution{Name: "range_clamp", Points: score - raw})
	}
	return &ScoreResult{
		Kind:       kind,
		Score:      score,
		Breakdown:  breakdown,
		ComputedAt: time.Now().UTC(),
	}
}
