package retriever

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's observability surface. Soft failures are the
// important one: a semantic or rerank failure never fails the query, so the
// counter is the only way operators notice systemic degradation.
type Metrics struct {
	SoftFailures *prometheus.CounterVec
	Queries      *prometheus.CounterVec
	Duration     prometheus.Histogram
}

// Soft-failure stages.
const (
	StageSemantic = "semantic"
	StageRerank   = "rerank"
)

// NewMetrics creates and registers the engine metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SoftFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codecompass",
				Name:      "retrieval_soft_failures_total",
				Help:      "Degradations absorbed without failing the query",
			},
			[]string{"stage"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codecompass",
				Name:      "retrieval_queries_total",
				Help:      "Total retrieval queries by mode",
			},
			[]string{"mode"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "codecompass",
				Name:      "retrieval_duration_seconds",
				Help:      "End-to-end retrieval latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
	}
	reg.MustRegister(m.SoftFailures, m.Queries, m.Duration)
	return m
}
