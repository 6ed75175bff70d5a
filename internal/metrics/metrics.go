package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus instruments. A registry is passed
// in so tests can use an isolated one.
type Metrics struct {
	ModelCallsTotal  *prometheus.CounterVec
	ModelCallSeconds *prometheus.HistogramVec
	RetriesTotal     *prometheus.CounterVec
	TokensTotal      *prometheus.CounterVec
	TrialsTotal      *prometheus.CounterVec
	GateWaitSeconds  prometheus.Histogram
}

// New registers the engine metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillrank_model_calls_total",
				Help: "Model API calls by purpose and outcome",
			},
			[]string{"purpose", "model", "outcome"},
		),
		ModelCallSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skillrank_model_call_seconds",
				Help:    "Model API call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"purpose", "model"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillrank_retries_total",
				Help: "Retried model calls by purpose and cause",
			},
			[]string{"purpose", "cause"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillrank_tokens_total",
				Help: "Tokens consumed, as reported by response metadata",
			},
			[]string{"model", "direction"},
		),
		TrialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillrank_trials_total",
				Help: "Trials finished by verdict, plus errored trials",
			},
			[]string{"result"},
		),
		GateWaitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skillrank_gate_wait_seconds",
				Help:    "Time spent waiting on the rate/concurrency gate",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(
		m.ModelCallsTotal,
		m.ModelCallSeconds,
		m.RetriesTotal,
		m.TokensTotal,
		m.TrialsTotal,
		m.GateWaitSeconds,
	)
	return m
}

// NewNop returns metrics backed by an unexported registry, for callers
// that do not care about scraping.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
