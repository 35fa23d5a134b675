package trust

import (
	"fmt"
	"time"
)

// SubjectFactors is a point-in-time aggregation of the behavioral counts
// which feed subject (regular user) trust scoring. Built fresh for each
// calculation; never mutated.
type SubjectFactors struct {
	AccountAgeDays    int  `json:"account_age_days"`
	SuccessfulEvents  int  `json:"successful_events"`
	ValidReportsFiled int  `json:"valid_reports_filed"`
	ReportsReceived   int  `json:"reports_received"`
	ModerationActions int  `json:"moderation_actions"`
	IdentityVerified  bool `json:"identity_verified"`
}

// OrganizerFactors is the organizer-side variant of the factor snapshot.
type OrganizerFactors struct {
	AccountAgeDays     int `json:"account_age_days"`
	TotalHackathons    int `json:"total_hackathons"`
	ApprovedHackathons int `json:"approved_hackathons"`
	RejectedHackathons int `json:"rejected_hackathons"`
	TotalParticipants  int `json:"total_participants"`
	Violations         int `json:"violations"`
}

type ScoreKind string

const (
	KindSubject   ScoreKind = "subject"
	KindOrganizer ScoreKind = "organizer"
)

// Contribution is one named, capped term of a trust score.
type Contribution struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// ScoreResult is the output of a single score calculation. Score is always
// in [0,100]. Breakdown terms sum exactly to Score (a "range_clamp" term is
// appended when the raw total fell outside the valid range). Exactly one of
// the factor fields is set, matching Kind.
type ScoreResult struct {
	Kind             ScoreKind         `json:"kind"`
	Score            int               `json:"score"`
	Breakdown        []Contribution    `json:"breakdown"`
	SubjectFactors   *SubjectFactors   `json:"subject_factors,omitempty"`
	OrganizerFactors *OrganizerFactors `json:"organizer_factors,omitempty"`
	ComputedAt       time.Time         `json:"computed_at"`
}

func (f *SubjectFactors) Validate() error {
	for _, c := range []struct {
		name string
		val  int
	}{
		{"account_age_days", f.AccountAgeDays},
		{"successful_events", f.SuccessfulEvents},
		{"valid_reports_filed", f.ValidReportsFiled},
		{"reports_received", f.ReportsReceived},
		{"moderation_actions", f.ModerationActions},
	} {
		if c.val < 0 {
			return fmt.Errorf("subject factors: negative %s (%d)", c.name, c.val)
		}
	}
	return nil
}

func (f *OrganizerFactors) Validate() error {
	for _, c := range []struct {
		name string
		val  int
	}{
		{"account_age_days", f.AccountAgeDays},
		{"total_hackathons", f.TotalHackathons},
		{"approved_hackathons", f.ApprovedHackathons},
		{"rejected_hackathons", f.RejectedHackathons},
		{"total_participants", f.TotalParticipants},
		{"violations", f.Violations},
	} {
		if c.val < 0 {
			return fmt.Errorf("organizer factors: negative %s (%d)", c.name, c.val)
		}
	}
	if f.ApprovedHackathons+f.RejectedHackathons > f.TotalHackathons {
		return fmt.Errorf("organizer factors: approved_hackathons + rejected_hackathons exceeds total_hackathons")
	}
	return nil
}
