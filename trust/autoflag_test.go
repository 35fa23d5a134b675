package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoFlagConditions(t *testing.T) {
	cfg := DefaultAutoFlagConfig()

	fixtures := []struct {
		rejected   int
		violations int
		flagged    bool
		reasonHas  string
	}{
		{0, 0, false, ""},
		{1, 1, false, ""},
		{2, 0, false, ""},
		{3, 0, true, "rejected hackathon count 3"},
		{5, 0, true, "rejected hackathon count 5"},
		{0, 3, true, "violation count 3"},
		{2, 1, true, "combined rejection and violation count 3"},
		{1, 2, true, "combined rejection and violation count 3"},
		{4, 4, true, "rejected hackathon count 4"},
	}

	for _, fix := range fixtures {
		res := EvaluateAutoFlag(cfg, &OrganizerFactors{
			TotalHackathons:    fix.rejected,
			RejectedHackathons: fix.rejected,
			Violations:         fix.violations,
		})
		assert.Equal(t, fix.flagged, res.ShouldFlag, "rejected=%d violations=%d", fix.rejected, fix.violations)
		if fix.flagged {
			assert.Contains(t, res.Reason, fix.reasonHas)
		} else {
			// validity law: an unflagged result means every quantity is
			// strictly below the threshold
			assert.Empty(t, res.Reason)
			assert.Less(t, res.RejectionCount, res.Threshold)
			assert.Less(t, res.ViolationCount, res.Threshold)
			assert.Less(t, res.RejectionCount+res.ViolationCount, res.Threshold)
		}
		assert.Equal(t, fix.rejected, res.RejectionCount)
		assert.Equal(t, fix.violations, res.ViolationCount)
		assert.Equal(t, 3, res.Threshold)
	}
}

func TestAutoFlagCustomThreshold(t *testing.T) {
	assert := assert.New(t)

	res := EvaluateAutoFlag(AutoFlagConfig{Threshold: 5}, &OrganizerFactors{
		TotalHackathons:    3,
		RejectedHackathons: 3,
	})
	assert.False(res.ShouldFlag)
	assert.Equal(5, res.Threshold)

	// zero config falls back to the default threshold
	res = EvaluateAutoFlag(AutoFlagConfig{}, &OrganizerFactors{
		TotalHackathons:    3,
		RejectedHackathons: 3,
	})
	assert.True(res.ShouldFlag)
	assert.Equal(3, res.Threshold)
}
