// Package metrics records completion, parsing and round metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives observations from the completion client and orchestrator.
type Recorder interface {
	// ObserveAttempt records one completion attempt. outcome is "success",
	// "error" or "timeout".
	ObserveAttempt(provider, model, outcome string, duration time.Duration)
	// ObserveExhausted records a request that used every attempt.
	ObserveExhausted(provider, model string)
	// ObserveParse records how an action was resolved.
	ObserveParse(game, match string)
	// ObservePayoff records a payoff lookup; found is false on a table miss.
	ObservePayoff(game string, found, truncated bool)
	// ObserveRound records one committed round.
	ObserveRound(game string, duration time.Duration)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObserveAttempt(string, string, string, time.Duration) {}
func (Nop) ObserveExhausted(string, string)                      {}
func (Nop) ObserveParse(string, string)                          {}
func (Nop) ObservePayoff(string, bool, bool)                     {}
func (Nop) ObserveRound(string, time.Duration)                   {}

// Prometheus implements Recorder on its own registry.
type Prometheus struct {
	registry        *prometheus.Registry
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	exhaustedTotal  *prometheus.CounterVec
	parseTotal      *prometheus.CounterVec
	payoffTotal     *prometheus.CounterVec
	roundsTotal     *prometheus.CounterVec
	roundDuration   *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with metrics registered on a fresh
// registry, so several recorders can coexist in one process.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		attemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_completion_attempts_total",
				Help: "Completion attempts by provider, model and outcome",
			},
			[]string{"provider", "model", "outcome"},
		),
		attemptDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_completion_attempt_duration_seconds",
				Help:    "Duration of completion attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
		exhaustedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_completion_exhausted_total",
				Help: "Completion requests that failed every attempt",
			},
			[]string{"provider", "model"},
		),
		parseTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_action_parse_total",
				Help: "Parsed actions by game and match kind",
			},
			[]string{"game", "match"},
		),
		payoffTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_payoff_lookups_total",
				Help: "Payoff lookups by game and result",
			},
			[]string{"game", "result"},
		),
		roundsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arena_rounds_total",
				Help: "Committed rounds by game",
			},
			[]string{"game"},
		),
		roundDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arena_round_duration_seconds",
				Help:    "Wall time of a full round in seconds",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"game"},
		),
	}
}

func (p *Prometheus) ObserveAttempt(provider, model, outcome string, duration time.Duration) {
	p.attemptsTotal.WithLabelValues(provider, model, outcome).Inc()
	p.attemptDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveExhausted(provider, model string) {
	p.exhaustedTotal.WithLabelValues(provider, model).Inc()
}

func (p *Prometheus) ObserveParse(game, match string) {
	p.parseTotal.WithLabelValues(game, match).Inc()
}

func (p *Prometheus) ObservePayoff(game string, found, truncated bool) {
	result := "hit"
	switch {
	case !found:
		result = "miss"
	case truncated:
		result = "truncated"
	}
	p.payoffTotal.WithLabelValues(game, result).Inc()
}

func (p *Prometheus) ObserveRound(game string, duration time.Duration) {
	p.roundsTotal.WithLabelValues(game).Inc()
	p.roundDuration.WithLabelValues(game).Observe(duration.Seconds())
}

// Registry exposes the underlying registry for scraping and tests.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the recorder's metrics in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
