package observability

import (
	"log/slog"

	"settlechain/core/events"
	"settlechain/core/types"
)

type eventPayload interface {
	Event() *types.Event
}

// EventRecorder is an events.Emitter that logs every emitted event and
// counts it in the metrics registry. The daemon installs it on all native
// modules.
type EventRecorder struct {
	logger  *slog.Logger
	metrics *SettlementMetrics
}

// NewEventRecorder creates a recorder bound to the supplied logger.
func NewEventRecorder(logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{logger: logger, metrics: Metrics()}
}

// Emit implements events.Emitter.
func (r *EventRecorder) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	r.metrics.ObserveEvent(eventType)
	args := []any{slog.String("event", eventType)}
	if payload, ok := evt.(eventPayload); ok {
		if e := payload.Event(); e != nil {
			r.count(eventType, e.Attributes)
			for key, value := range e.Attributes {
				args = append(args, slog.String(key, value))
			}
		}
	}
	r.logger.Info("event emitted", args...)
}

// count feeds the domain counters from the well-known event payloads.
func (r *EventRecorder) count(eventType string, attrs map[string]string) {
	switch eventType {
	case "condition.fulfilled", "condition.aborted":
		r.metrics.ObserveTransition(attrs["kind"], attrs["state"])
	case "agreement.created":
		r.metrics.ObserveAgreementCreated()
	case "settlement.escrow.paid", "settlement.escrow.refunded":
		r.metrics.ObserveEscrowOutcome(attrs["outcome"])
	}
}
