package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hackforge/sentinel/detect"
	"github.com/hackforge/sentinel/models"
)

// collectEvents walks the event feed page by page until the query is
// exhausted or the page cap is hit. Detection over-counting is impossible
// because the evaluators re-filter by window; hitting the cap can only
// under-count on a pathologically hot feed, which is logged.
func (eng *Engine) collectEvents(ctx context.Context, q EventQuery) ([]*models.ActivityEvent, error) {
	q.Limit = detectPageSize
	var out []*models.ActivityEvent
	for i := 0; i < detectMaxPages; i++ {
		page, err := eng.Store.QueryEvents(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("querying activity events: %w", err)
		}
		out = append(out, page.Events...)
		if !page.HasMore {
			return out, nil
		}
		q.Cursor = page.NextCursor
	}
	eng.Logger.Warn("event window truncated at page cap", "types", q.Types, "collected", len(out))
	return out, nil
}

// DetectPattern evaluates one suspicious behavior pattern over the trailing
// window, optionally scoped to a single actor. Detection only reports
// evidence; it never flags on its own.
func (eng *Engine) DetectPattern(ctx context.Context, pattern detect.Pattern, actorID *uint64) (*detect.PatternResult, error) {
	eventType, err := pattern.EventType()
	if err != nil {
		return nil, err
	}
	pc, ok := eng.Detection.Patterns[pattern]
	if !ok {
		return nil, fmt.Errorf("no threshold configured for pattern: %s", pattern)
	}

	now := time.Now().UTC()
	events, err := eng.collectEvents(ctx, EventQuery{
		Types:   []string{eventType},
		ActorID: actorID,
		Since:   now.Add(-pc.Window),
		Until:   now,
	})
	if err != nil {
		return nil, err
	}

	res, err := detect.EvaluatePattern(eng.Detection, pattern, events, now)
	if err != nil {
		return nil, err
	}
	res.ActorID = actorID
	patternEvalCount.WithLabelValues(string(pattern)).Inc()
	if res.Triggered {
		patternTriggerCount.WithLabelValues(string(pattern)).Inc()
		eng.Logger.Warn("suspicious pattern detected",
			"pattern", pattern, "observed", res.Observed, "threshold", res.Threshold, "actor", actorID)
	}
	return res, nil
}

// DetectAllPatterns evaluates every configured pattern and returns only the
// triggered ones, for periodic sweeps and the dashboard.
func (eng *Engine) DetectAllPatterns(ctx context.Context, actorID *uint64) ([]*detect.PatternResult, error) {
	var triggered []*detect.PatternResult
	for pattern := range eng.Detection.Patterns {
		res, err := eng.DetectPattern(ctx, pattern, actorID)
		if err != nil {
			return nil, err
		}
		if res.Triggered {
			triggered = append(triggered, res)
		}
	}
	return triggered, nil
}

// DetectSpike compares the platform-wide activity rate of the last few
// minutes against the rolling hourly average.
func (eng *Engine) DetectSpike(ctx context.Context) (*detect.SpikeResult, error) {
	now := time.Now().UTC()
	events, err := eng.collectEvents(ctx, EventQuery{
		Since: now.Add(-eng.Detection.Spike.AverageWindow),
		Until: now,
	})
	if err != nil {
		return nil, err
	}

	res := detect.EvaluateSpike(eng.Detection.Spike, events, now)
	if res.IsSpike {
		spikeEvalCount.WithLabelValues("spike").Inc()
		eng.Logger.Warn("activity spike detected",
			"current_rate", res.CurrentRate, "average_rate", res.AverageRate, "ratio", res.Ratio)
		eng.notifySlack(ctx, fmt.Sprintf("📈 Activity spike: %.1f events/min vs %.1f avg (x%.1f, %d events in window)",
			res.CurrentRate, res.AverageRate, res.Ratio, res.TotalActivities))
	} else {
		spikeEvalCount.WithLabelValues("normal").Inc()
	}
	return res, nil
}
