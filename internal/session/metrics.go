package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors reporting generation activity.
type Metrics struct {
	submissions *prometheus.CounterVec
	settled     *prometheus.CounterVec
	jobsActive  prometheus.Gauge
}

// MustNewMetrics constructs the collectors on the provided registerer.
// Registration conflicts reuse the existing collector, so repeated
// construction against the same registry is safe; other errors panic,
// mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	submissions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nanobanana",
			Subsystem: "session",
			Name:      "submissions_total",
			Help:      "Generation submissions accepted, by mode.",
		},
		[]string{"mode"},
	)
	settled := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nanobanana",
			Subsystem: "session",
			Name:      "settled_total",
			Help:      "Submissions settled, by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	jobsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nanobanana",
			Subsystem: "session",
			Name:      "jobs_active",
			Help:      "Submissions currently in flight.",
		},
	)

	for _, collector := range []prometheus.Collector{submissions, settled, jobsActive} {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector {
				case submissions:
					submissions = already.ExistingCollector.(*prometheus.CounterVec)
				case settled:
					settled = already.ExistingCollector.(*prometheus.CounterVec)
				case jobsActive:
					jobsActive = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{submissions: submissions, settled: settled, jobsActive: jobsActive}
}

func (m *Metrics) IncSubmission(mode Mode) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) IncSettled(mode Mode, outcome string) {
	if m == nil || m.settled == nil {
		return
	}
	m.settled.WithLabelValues(string(mode), outcome).Inc()
}

func (m *Metrics) IncActive() {
	if m == nil || m.jobsActive == nil {
		return
	}
	m.jobsActive.Inc()
}

func (m *Metrics) DecActive() {
	if m == nil || m.jobsActive == nil {
		return
	}
	m.jobsActive.Dec()
}
