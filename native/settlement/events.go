package settlement

import (
	"encoding/hex"
	"math/big"

	"settlechain/core/types"
	"settlechain/native/condition"
)

const (
	EventTypePaymentLocked    = "settlement.payment.locked"
	EventTypeAccessGranted    = "settlement.access.granted"
	EventTypeAccessExpired    = "settlement.access.expired"
	EventTypeAssetTransferred = "settlement.asset.transferred"
	EventTypeEscrowPaid       = "settlement.escrow.paid"
	EventTypeEscrowRefunded   = "settlement.escrow.refunded"
)

// NewPaymentLockedEvent returns the canonical payload emitted when a lock
// payment condition moves funds into the holder.
func NewPaymentLockedEvent(c *condition.Condition, did [32]byte, payer, holder [20]byte, token string, total *big.Int) *types.Event {
	attrs := map[string]string{
		"did":    hex.EncodeToString(did[:]),
		"payer":  hex.EncodeToString(payer[:]),
		"holder": hex.EncodeToString(holder[:]),
		"token":  token,
		"total":  formatAmount(total),
	}
	if c != nil {
		attrs["conditionId"] = hex.EncodeToString(c.ID[:])
	}
	return &types.Event{Type: EventTypePaymentLocked, Attributes: attrs}
}

// NewGrantEvent returns the payload for an access or compute grant. An
// attempt past the deadline produces the expired variant.
func NewGrantEvent(kind string, id [32]byte, did [32]byte, grantee [20]byte, state condition.State) *types.Event {
	eventType := EventTypeAccessGranted
	if state == condition.StateAborted {
		eventType = EventTypeAccessExpired
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"kind":        kind,
			"conditionId": hex.EncodeToString(id[:]),
			"did":         hex.EncodeToString(did[:]),
			"grantee":     hex.EncodeToString(grantee[:]),
			"state":       state.String(),
		},
	}
}

// NewAssetTransferredEvent returns the payload emitted when DID ownership
// moves from seller to buyer.
func NewAssetTransferredEvent(c *condition.Condition, did [32]byte, seller, buyer [20]byte) *types.Event {
	attrs := map[string]string{
		"did":    hex.EncodeToString(did[:]),
		"seller": hex.EncodeToString(seller[:]),
		"buyer":  hex.EncodeToString(buyer[:]),
	}
	if c != nil {
		attrs["conditionId"] = hex.EncodeToString(c.ID[:])
	}
	return &types.Event{Type: EventTypeAssetTransferred, Attributes: attrs}
}

// NewEscrowSettledEvent returns the payload emitted when an escrow pays out
// or refunds.
func NewEscrowSettledEvent(id [32]byte, did [32]byte, token string, total *big.Int, outcome EscrowOutcome) *types.Event {
	eventType := EventTypeEscrowPaid
	if outcome == EscrowRefunded {
		eventType = EventTypeEscrowRefunded
	}
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"conditionId": hex.EncodeToString(id[:]),
			"did":         hex.EncodeToString(did[:]),
			"token":       token,
			"total":       formatAmount(total),
			"outcome":     outcome.String(),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
