// Package detect implements threshold-based behavioral pattern detection and
// activity-rate spike detection over windows of activity events. All
// evaluation is pure; fetching the event windows is the caller's concern.
package detect

import (
	"fmt"
	"time"

	"github.com/hackforge/sentinel/models"
)

type Pattern string

const (
	PatternRapidAccountCreation Pattern = "rapid_account_creation"
	PatternBulkRegistration     Pattern = "bulk_registration"
	PatternRepeatReports        Pattern = "repeat_reports"
	PatternMassGroupJoin        Pattern = "mass_group_join"
	PatternSpamBurst            Pattern = "spam_burst"
)

// patternEventTypes maps each pattern to the activity event type it counts.
var patternEventTypes = map[Pattern]string{
	PatternRapidAccountCreation: models.EventTypeAccountCreated,
	PatternBulkRegistration:     models.EventTypeRegistrationCreated,
	PatternRepeatReports:        models.EventTypeReportFiled,
	PatternMassGroupJoin:        models.EventTypeGroupJoined,
	PatternSpamBurst:            models.EventTypeSubmissionCreated,
}

// EventType returns the activity event type counted by the pattern, or an
// error naming an unknown pattern.
func (p Pattern) EventType() (string, error) {
	t, ok := patternEventTypes[p]
	if !ok {
		return "", fmt.Errorf("unknown detection pattern: %s", p)
	}
	return t, nil
}

// PatternConfig is the per-pattern threshold: Count matching events within
// the trailing Window triggers the pattern.
type PatternConfig struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"window"`
}

// Config carries every detection threshold. Thresholds are configuration,
// not behavior: construct with DefaultConfig and override as needed.
type Config struct {
	Patterns map[Pattern]PatternConfig
	Spike    SpikeConfig
}

func DefaultConfig() Config {
	return Config{
		Patterns: map[Pattern]PatternConfig{
			PatternRapidAccountCreation: {Count: 5, Window: 10 * time.Minute},
			PatternBulkRegistration:     {Count: 10, Window: 5 * time.Minute},
			PatternRepeatReports:        {Count: 5, Window: 30 * time.Minute},
			PatternMassGroupJoin:        {Count: 8, Window: 10 * time.Minute},
			PatternSpamBurst:            {Count: 15, Window: 5 * time.Minute},
		},
		Spike: DefaultSpikeConfig(),
	}
}

// PatternResult reports the evidence behind a pattern decision, never a bare
// boolean: the observed count, the configured threshold, and the window used.
type PatternResult struct {
	Pattern   Pattern       `json:"pattern"`
	Triggered bool          `json:"triggered"`
	Observed  int           `json:"observed"`
	Threshold int           `json:"threshold"`
	Window    time.Duration `json:"window"`
	ActorID   *uint64       `json:"actor_id,omitempty"`
}

// EvaluatePattern counts events matching the named pattern within the
// trailing window ending at now. Events outside the window or of other types
// are ignored, so callers may pass an over-fetched page. Scoping to a single
// actor is done by the caller when fetching.
func EvaluatePattern(cfg Config, pattern Pattern, events []*models.ActivityEvent, now time.Time) (*PatternResult, error) {
	eventType, err := pattern.EventType()
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Patterns[pattern]
	if !ok {
		return nil, fmt.Errorf("no threshold configured for pattern: %s", pattern)
	}

	cutoff := now.Add(-pc.Window)
	observed := 0
	for _, evt := range events {
		if evt.Type != eventType {
			continue
		}
		if evt.OccurredAt.Before(cutoff) || evt.OccurredAt.After(now) {
			continue
		}
		observed++
	}

	return &PatternResult{
		Pattern:   pattern,
		Triggered: observed >= pc.Count,
		Observed:  observed,
		Threshold: pc.Count,
		Window:    pc.Window,
	}, nil
}
