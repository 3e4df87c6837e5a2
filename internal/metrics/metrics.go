// Package metrics exposes Prometheus collectors for inventory submissions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for submissions.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// SubmitMetrics records inventory submissions. A nil *SubmitMetrics is a no-op.
type SubmitMetrics struct {
	submissions  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	replacements *prometheus.CounterVec
}

// NewSubmitMetrics registers the submission metrics on reg. A nil reg
// returns a recorder that drops everything.
func NewSubmitMetrics(reg prometheus.Registerer) *SubmitMetrics {
	if reg == nil {
		return &SubmitMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hwdb",
		Name:      "submissions_total",
		Help:      "Inventory submissions by transport and result.",
	}, []string{"transport", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hwdb",
		Name:      "submit_duration_seconds",
		Help:      "Time spent merging and storing a submission.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"transport"})
	replacements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hwdb",
		Name:      "collection_replacements_total",
		Help:      "Child collections replaced by submissions.",
	}, []string{"collection"})
	reg.MustRegister(submissions, duration, replacements)
	return &SubmitMetrics{
		submissions:  submissions,
		duration:     duration,
		replacements: replacements,
	}
}

// ObserveSubmit records one submission and how long it took.
func (m *SubmitMetrics) ObserveSubmit(transport, result string, took time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	transport = normalizeLabel(transport)
	m.submissions.WithLabelValues(transport, normalizeLabel(result)).Inc()
	m.duration.WithLabelValues(transport).Observe(took.Seconds())
}

// IncReplacement counts one replaced collection (gpus, ram_sticks, disks).
func (m *SubmitMetrics) IncReplacement(collection string) {
	if m == nil || m.replacements == nil {
		return
	}
	m.replacements.WithLabelValues(normalizeLabel(collection)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
