package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records condition, agreement and gateway activity.
type SettlementMetrics struct {
	transitions    *prometheus.CounterVec
	agreements     prometheus.Counter
	escrowOutcomes *prometheus.CounterVec
	events         *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

var (
	settlementOnce sync.Once
	settlementReg  *SettlementMetrics
)

// Metrics returns the lazily-initialised settlement metrics registry.
func Metrics() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementReg = &SettlementMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settlechain",
				Subsystem: "condition",
				Name:      "transitions_total",
				Help:      "Condition state transitions segmented by kind and resulting state.",
			}, []string{"kind", "state"}),
			agreements: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "settlechain",
				Subsystem: "agreement",
				Name:      "created_total",
				Help:      "Agreements created.",
			}),
			escrowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settlechain",
				Subsystem: "escrow",
				Name:      "settlements_total",
				Help:      "Escrow settlements segmented by outcome.",
			}, []string{"outcome"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settlechain",
				Subsystem: "engine",
				Name:      "events_total",
				Help:      "Events emitted by the native modules segmented by type.",
			}, []string{"type"}),
			httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "settlechain",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Gateway requests segmented by route, method and status.",
			}, []string{"route", "method", "status"}),
			httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "settlechain",
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			settlementReg.transitions,
			settlementReg.agreements,
			settlementReg.escrowOutcomes,
			settlementReg.events,
			settlementReg.httpRequests,
			settlementReg.httpLatency,
		)
	})
	return settlementReg
}

// ObserveTransition records one condition transition.
func (m *SettlementMetrics) ObserveTransition(kind, state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, state).Inc()
}

// ObserveAgreementCreated records one agreement creation.
func (m *SettlementMetrics) ObserveAgreementCreated() {
	if m == nil {
		return
	}
	m.agreements.Inc()
}

// ObserveEscrowOutcome records one escrow settlement outcome.
func (m *SettlementMetrics) ObserveEscrowOutcome(outcome string) {
	if m == nil {
		return
	}
	m.escrowOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveEvent records one emitted engine event.
func (m *SettlementMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// ObserveHTTP records one gateway request.
func (m *SettlementMetrics) ObserveHTTP(route, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}
