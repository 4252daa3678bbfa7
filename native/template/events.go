package template

import (
	"encoding/hex"
	"strconv"
	"strings"

	"settlechain/core/types"
)

const (
	EventTypeTemplateProposed = "template.proposed"
	EventTypeTemplateApproved = "template.approved"
	EventTypeTemplateRevoked  = "template.revoked"
)

type templateEvent struct {
	evt *types.Event
}

func (e templateEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e templateEvent) Event() *types.Event { return e.evt }

// NewProposedEvent returns the canonical payload for a newly proposed
// template.
func NewProposedEvent(t *Template) *types.Event {
	return newTemplateEvent(EventTypeTemplateProposed, t)
}

// NewApprovedEvent returns the canonical payload for an approved template.
func NewApprovedEvent(t *Template) *types.Event {
	return newTemplateEvent(EventTypeTemplateApproved, t)
}

// NewRevokedEvent returns the canonical payload for a revoked template.
func NewRevokedEvent(t *Template) *types.Event {
	return newTemplateEvent(EventTypeTemplateRevoked, t)
}

func newTemplateEvent(eventType string, t *Template) *types.Event {
	attrs := make(map[string]string)
	if t == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = t.ID
	attrs["state"] = t.State.String()
	attrs["proposer"] = hex.EncodeToString(t.Proposer[:])
	attrs["conditionKinds"] = strings.Join(t.ConditionKinds, ",")
	attrs["updatedAt"] = strconv.FormatInt(t.UpdatedAt, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}
