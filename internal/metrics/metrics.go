package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trainer loop metrics
var (
	// TicksTotal counts controller iterations that reached the rule
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petminion_ticks_total",
			Help: "Total controller ticks evaluated by the training rule",
		},
	)

	// TickOutcomesTotal tracks evaluation results by rule and outcome (success/failure)
	TickOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminion_tick_outcomes_total",
			Help: "Scene evaluations by rule and outcome",
		},
		[]string{"rule", "outcome"},
	)

	// DayRolloversTotal counts fed_today resets
	DayRolloversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petminion_day_rollovers_total",
			Help: "Total day rollovers that reset the daily feeding counter",
		},
	)
)

// Feeding metrics
var (
	// FeedingsTotal tracks feeder invocations by rule and feeding path
	FeedingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminion_feedings_total",
			Help: "Feeder invocations by rule and path (scheduled/rewarded/free)",
		},
		[]string{"rule", "path"},
	)

	// PortionsTotal tracks dispensed portions by rule
	PortionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminion_portions_total",
			Help: "Portions dispensed by rule",
		},
		[]string{"rule"},
	)

	// FeedFailuresTotal tracks feedings abandoned by rule and failing stage
	FeedFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminion_feed_failures_total",
			Help: "Feedings that failed before the daily counter changed, by rule and stage",
		},
		[]string{"rule", "stage"},
	)

	// FedToday mirrors the persisted daily counter
	FedToday = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "petminion_fed_today",
			Help: "Portions dispensed since the last day rollover",
		},
	)
)

// Evidence and social metrics
var (
	// SnapshotsTotal tracks labeled training snapshots by label and status
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminion_snapshots_total",
			Help: "Training snapshots by label and status (saved/error)",
		},
		[]string{"label", "status"},
	)

	// CaptureSessionsTotal tracks social capture sessions by result
	CaptureSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petminion_capture_sessions_total",
			Help: "Social capture sessions by result (started/rejected/posted/failed)",
		},
		[]string{"result"},
	)
)
