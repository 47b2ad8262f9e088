// Package metrics exposes Prometheus instruments for scans and remediation.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

const namespace = "accountguard"

// Metrics holds all Prometheus instruments.
type Metrics struct {
	ScansTotal          *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	Issues              *prometheus.GaugeVec
	Score               prometheus.Gauge
	SourceFailuresTotal *prometheus.CounterVec
	RemediationsTotal   *prometheus.CounterVec
}

// New registers every instrument with reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of scans, by whether every source completed",
		}, []string{"complete"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of scans",
			Buckets:   prometheus.DefBuckets,
		}),
		Issues: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "issues",
			Help:      "Issues found by the most recent scan, by severity",
		}, []string{"severity"}),
		Score: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Posture score of the most recent scan",
		}),
		SourceFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Sources that could not complete a scan, by connector error kind",
		}, []string{"source", "kind"}),
		RemediationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediations_total",
			Help:      "Remediation actions executed, by action and outcome",
		}, []string{"action", "outcome"}),
	}
}

// ObserveScan records a finished scan.
func (m *Metrics) ObserveScan(r *models.AnalysisResult, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}
	complete := "true"
	if !r.Complete() {
		complete = "false"
	}
	m.ScansTotal.WithLabelValues(complete).Inc()
	m.ScanDuration.Observe(elapsed.Seconds())
	for _, sev := range models.AllSeverities() {
		m.Issues.WithLabelValues(string(sev)).Set(float64(r.Counts.Get(sev)))
	}
	m.Score.Set(float64(r.Score))
}

// SourceFailed records a source that did not complete.
func (m *Metrics) SourceFailed(src models.Source, kind string) {
	if m == nil {
		return
	}
	m.SourceFailuresTotal.WithLabelValues(string(src), kind).Inc()
}

// ObserveRemediation records one remediation outcome.
func (m *Metrics) ObserveRemediation(d models.RemediationDetail) {
	if m == nil {
		return
	}
	outcome := "failed"
	switch {
	case d.AlreadyRemediated:
		outcome = "already_remediated"
	case d.Reapplied:
		outcome = "reapplied"
	case d.Success:
		outcome = "succeeded"
	}
	action := string(d.Action)
	if action == "" {
		action = "none"
	}
	m.RemediationsTotal.WithLabelValues(action, outcome).Inc()
}
