package trust

import (
	"fmt"
)

// AutoFlagConfig holds the shared threshold for the automatic organizer flag
// conditions. Injected at construction so the threshold is tunable without a
// rebuild.
type AutoFlagConfig struct {
	Threshold int
}

func DefaultAutoFlagConfig() AutoFlagConfig {
	return AutoFlagConfig{Threshold: 3}
}

// AutoFlagResult carries the flag decision plus the evidence behind it, so
// callers can render why an organizer was (or was not) flagged.
type AutoFlagResult struct {
	ShouldFlag     bool   `json:"should_flag"`
	Reason         string `json:"reason,omitempty"`
	RejectionCount int    `json:"rejection_count"`
	ViolationCount int    `json:"violation_count"`
	Threshold      int    `json:"threshold"`
}

// EvaluateAutoFlag decides whether an organizer should be automatically
// flagged. Flags when rejections, violations, or their sum reach the
// threshold; when none of the three conditions hold, all counts are strictly
// below the threshold.
func EvaluateAutoFlag(cfg AutoFlagConfig, f *OrganizerFactors) *AutoFlagResult {
	t := cfg.Threshold
	if t <= 0 {
		t = DefaultAutoFlagConfig().Threshold
	}
	res := &AutoFlagResult{
		RejectionCount: f.RejectedHackathons,
		ViolationCount: f.Violations,
		Threshold:      t,
	}
	switch {
	case f.RejectedHackathons >= t:
		res.ShouldFlag = true
		res.Reason = fmt.Sprintf("rejected hackathon count %d reached threshold %d", f.RejectedHackathons, t)
	case f.Violations >= t:
		res.ShouldFlag = true
		res.Reason = fmt.Sprintf("violation count %d reached threshold %d", f.Violations, t)
	case f.RejectedHackathons+f.Violations >= t:
		res.ShouldFlag = true
		res.Reason = fmt.Sprintf("combined rejection and violation count %d reached threshold %d", f.RejectedHackathons+f.Violations, t)
	}
	return res
}
