package agreement

import (
	"encoding/hex"
	"strconv"
	"strings"

	"settlechain/core/types"
)

const EventTypeAgreementCreated = "agreement.created"

type agreementEvent struct {
	evt *types.Event
}

func (e agreementEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e agreementEvent) Event() *types.Event { return e.evt }

// NewCreatedEvent returns the canonical payload for a newly created
// agreement.
func NewCreatedEvent(a *Agreement) *types.Event {
	attrs := make(map[string]string)
	if a == nil {
		return &types.Event{Type: EventTypeAgreementCreated, Attributes: attrs}
	}
	ids := make([]string, len(a.ConditionIDs))
	for i, id := range a.ConditionIDs {
		ids[i] = hex.EncodeToString(id[:])
	}
	attrs["id"] = hex.EncodeToString(a.ID[:])
	attrs["did"] = hex.EncodeToString(a.DID[:])
	attrs["templateId"] = a.TemplateID
	attrs["conditionIds"] = strings.Join(ids, ",")
	attrs["createdBy"] = hex.EncodeToString(a.CreatedBy[:])
	attrs["createdAt"] = strconv.FormatInt(a.CreatedAt, 10)
	return &types.Event{Type: EventTypeAgreementCreated, Attributes: attrs}
}
