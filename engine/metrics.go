package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var scoreCalcCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_score_calculations",
	Help: "Number of trust score calculations",
}, []string{"kind"})

var autoFlagCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_auto_flags",
	Help: "Auto-flag evaluations which met the threshold, by outcome",
}, []string{"outcome"})

var flagActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_flag_actions",
	Help: "Number of explicit flag and unflag actions",
}, []string{"action"})

var revocationCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sentinel_revocations",
	Help: "Number of completed organizer revocations",
})

var revokeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "sentinel_revoke_duration_sec",
	Help: "Total duration of organizer revocation, including the cascade",
})

var cascadeItemCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_cascade_items",
	Help: "Dependent hackathons touched by revocation cascades, by outcome",
}, []string{"outcome"})

var patternEvalCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_pattern_evaluations",
	Help: "Number of suspicious pattern evaluations",
}, []string{"pattern"})

var patternTriggerCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_pattern_triggers",
	Help: "Number of suspicious pattern evaluations which triggered",
}, []string{"pattern"})

var spikeEvalCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sentinel_spike_evaluations",
	Help: "Number of activity spike evaluations, by result",
}, []string{"result"})

var slackErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sentinel_slack_errors",
	Help: "Number of failed slack webhook notifications",
})
