package events

import (
	"context"
	"net/http"

	"Ballot/internal/core/votes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ballot"

// MetricsSink counts vote transitions and records the magnitudes being cast
type MetricsSink struct {
	events    *prometheus.CounterVec
	magnitude prometheus.Histogram
}

// NewMetricsSink creates the vote metrics and registers them on reg
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_events_total",
			Help:      "Total number of committed vote transitions, by kind and subject type.",
		}, []string{"kind", "subject_type"}),
		magnitude: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vote_magnitude",
			Help:      "Magnitude of created or changed votes.",
			Buckets:   []float64{-100, -10, -5, -2, -1, 1, 2, 5, 10, 100},
		}),
	}

	reg.MustRegister(s.events, s.magnitude)
	return s
}

func (s *MetricsSink) Publish(_ context.Context, event votes.Event) {
	s.events.WithLabelValues(string(event.Kind), event.Vote.SubjectType).Inc()
	if event.IsVoted() {
		s.magnitude.Observe(float64(event.Vote.Magnitude))
	}
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves the metrics gathered by reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
