package condition

import (
	"encoding/hex"
	"strconv"

	"settlechain/core/types"
)

const (
	EventTypeConditionCreated   = "condition.created"
	EventTypeConditionFulfilled = "condition.fulfilled"
	EventTypeConditionAborted   = "condition.aborted"
)

type conditionEvent struct {
	evt *types.Event
}

func (e conditionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e conditionEvent) Event() *types.Event { return e.evt }

// NewCreatedEvent returns the canonical event payload for a newly registered
// condition.
func NewCreatedEvent(c *Condition) *types.Event {
	return newConditionEvent(EventTypeConditionCreated, c)
}

// NewFulfilledEvent returns the canonical event payload for a fulfilled
// condition.
func NewFulfilledEvent(c *Condition) *types.Event {
	return newConditionEvent(EventTypeConditionFulfilled, c)
}

// NewAbortedEvent returns the canonical event payload for an aborted
// condition.
func NewAbortedEvent(c *Condition) *types.Event {
	return newConditionEvent(EventTypeConditionAborted, c)
}

func newConditionEvent(eventType string, c *Condition) *types.Event {
	attrs := make(map[string]string)
	if c == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(c.ID[:])
	attrs["kind"] = c.Kind
	attrs["state"] = c.State.String()
	attrs["timeLock"] = strconv.FormatUint(c.TimeLock, 10)
	attrs["timeOut"] = strconv.FormatUint(c.TimeOut, 10)
	attrs["createdAt"] = strconv.FormatInt(c.CreatedAt, 10)
	attrs["updatedBy"] = c.LastUpdatedBy
	return &types.Event{Type: eventType, Attributes: attrs}
}
