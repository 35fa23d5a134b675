package detect

import (
	"time"

	"github.com/hackforge/sentinel/models"
)

// SpikeConfig tunes anomaly spike detection: a spike is a current-window
// per-minute rate exceeding the rolling average rate by more than Threshold,
// with MinActivities suppressing false spikes on near-empty data.
type SpikeConfig struct {
	AverageWindow time.Duration `json:"average_window"`
	CurrentWindow time.Duration `json:"current_window"`
	Threshold     float64       `json:"threshold"`
	MinActivities int           `json:"min_activities"`
}

func DefaultSpikeConfig() SpikeConfig {
	return SpikeConfig{
		AverageWindow: 60 * time.Minute,
		CurrentWindow: 5 * time.Minute,
		Threshold:     2.0,
		MinActivities: 10,
	}
}

// SpikeResult carries both rates and the computed ratio so callers can
// render the evidence.
type SpikeResult struct {
	IsSpike         bool          `json:"is_spike"`
	CurrentRate     float64       `json:"current_rate"`
	AverageRate     float64       `json:"average_rate"`
	Ratio           float64       `json:"ratio"`
	TotalActivities int           `json:"total_activities"`
	AverageWindow   time.Duration `json:"average_window"`
	CurrentWindow   time.Duration `json:"current_window"`
}

// EvaluateSpike compares the per-minute event rate of the current window
// against the rolling average rate over the full average window ending at
// now. Callers supply all events within the average window; anything outside
// it is ignored.
func EvaluateSpike(cfg SpikeConfig, events []*models.ActivityEvent, now time.Time) *SpikeResult {
	if cfg.AverageWindow <= 0 {
		cfg.AverageWindow = DefaultSpikeConfig().AverageWindow
	}
	if cfg.CurrentWindow <= 0 {
		cfg.CurrentWindow = DefaultSpikeConfig().CurrentWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultSpikeConfig().Threshold
	}

	avgCutoff := now.Add(-cfg.AverageWindow)
	curCutoff := now.Add(-cfg.CurrentWindow)

	total := 0
	current := 0
	for _, evt := range events {
		if evt.OccurredAt.Before(avgCutoff) || evt.OccurredAt.After(now) {
			continue
		}
		total++
		if !evt.OccurredAt.Before(curCutoff) {
			current++
		}
	}

	currentRate := float64(current) / cfg.CurrentWindow.Minutes()
	averageRate := float64(total) / cfg.AverageWindow.Minutes()
	ratio := 0.0
	if averageRate > 0 {
		ratio = currentRate / averageRate
	}

	return &SpikeResult{
		IsSpike:         total >= cfg.MinActivities && currentRate > averageRate*cfg.Threshold,
		CurrentRate:     currentRate,
		AverageRate:     averageRate,
		Ratio:           ratio,
		TotalActivities: total,
		AverageWindow:   cfg.AverageWindow,
		CurrentWindow:   cfg.CurrentWindow,
	}
}
