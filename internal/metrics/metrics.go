// Package metrics exposes chatmem's Prometheus collectors on a dedicated
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatmem"

// Turn outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

// Eviction policies.
const (
	PolicyTTL      = "ttl"
	PolicyCapacity = "capacity"
)

// StoreStats reports the live dialog and message counts.
type StoreStats func() (dialogs, messages int)

// Metrics holds every collector. All methods are safe on a nil receiver,
// which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	generation   prometheus.Histogram
	tokens       *prometheus.CounterVec
	commands     *prometheus.CounterVec
	evictions    *prometheus.CounterVec
	inboxDropped prometheus.Counter
}

// New creates the collectors on a fresh registry. When stats is non-nil,
// chatmem_dialogs and chatmem_messages gauges are computed from it at
// scrape time.
func New(stats StoreStats) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Text turns processed, by outcome.",
		}, []string{"outcome"}),
		generation: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Latency of provider completion calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by the provider, by kind.",
		}, []string{"kind"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Slash commands handled, by command.",
		}, []string{"command"}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Dialogs removed by eviction, by policy.",
		}, []string{"policy"}),
		inboxDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_dropped_total",
			Help:      "Inbound messages dropped because the inbox was full.",
		}),
	}

	if stats != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dialogs",
			Help:      "Live dialogs in the conversation store.",
		}, func() float64 {
			d, _ := stats()
			return float64(d)
		})
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "messages",
			Help:      "History messages held across all dialogs.",
		}, func() float64 {
			_, n := stats()
			return float64(n)
		})
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTurn counts one text turn with the given outcome.
func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records the latency of one provider call.
func (m *Metrics) ObserveGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generation.Observe(d.Seconds())
}

// AddTokens adds provider-reported token usage.
func (m *Metrics) AddTokens(prompt, completion int) {
	if m == nil {
		return
	}
	if prompt > 0 {
		m.tokens.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		m.tokens.WithLabelValues("completion").Add(float64(completion))
	}
}

// IncCommand counts one handled command.
func (m *Metrics) IncCommand(command string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command).Inc()
}

// AddEvictions adds n dialogs removed by policy.
func (m *Metrics) AddEvictions(policy string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.WithLabelValues(policy).Add(float64(n))
}

// IncInboxDropped counts one dropped inbound message.
func (m *Metrics) IncInboxDropped() {
	if m == nil {
		return
	}
	m.inboxDropped.Inc()
}
