// Package metrics exposes Prometheus collectors for moderation activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScansTotal counts bad-word scans by result: "clean" or "flagged".
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_scans_total",
		Help: "Number of texts scanned for banned words",
	}, []string{"result"})

	// StrikesTotal counts issued strikes by source, e.g. "language", "invite", "moderator".
	StrikesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_strikes_total",
		Help: "Number of strikes issued",
	}, []string{"source"})

	StrikeWeight = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_strike_weight_total",
		Help: "Sum of issued strike weights",
	})

	MutesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_mutes_total",
		Help: "Number of timeouts applied for strike escalation",
	})

	BansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "warden_bans_total",
		Help: "Number of bans applied for strike escalation",
	})

	// ActionFailures counts platform actions that failed, labeled by action.
	ActionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_action_failures_total",
		Help: "Number of moderation actions the bot could not perform",
	}, []string{"action"})

	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_scan_duration_seconds",
		Help:    "Time spent scanning one text for banned words",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
	})
)

func init() {
	prometheus.MustRegister(
		ScansTotal,
		StrikesTotal,
		StrikeWeight,
		MutesTotal,
		BansTotal,
		ActionFailures,
		ScanDuration,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
