package settlement

import (
	"fmt"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashTransferAssetValues computes the canonical parameter hash of an asset
// transfer condition. The referenced lock payment condition id is part of
// the parameters, binding the transfer to one specific payment.
func HashTransferAssetValues(did [32]byte, seller, buyer [20]byte, lockConditionID [32]byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(did)
	enc.WriteAddress(seller)
	enc.WriteAddress(buyer)
	enc.WriteHash(lockConditionID)
	return enc.Sum()
}

// FulfillTransferAsset moves DID ownership from seller to buyer once the
// referenced lock payment condition is Fulfilled. The stored state of the
// lock condition is consulted directly; caller-supplied claims are never
// trusted.
func (e *Engine) FulfillTransferAsset(caller [20]byte, agreementID, did [32]byte, seller, buyer [20]byte, lockConditionID [32]byte) ([32]byte, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, err
	}
	if e.assets == nil {
		return [32]byte{}, errNilAssets
	}
	id := condition.GenerateID(agreementID, KindTransferAsset, HashTransferAssetValues(did, seller, buyer, lockConditionID))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, err
	}
	if state := e.conditions.GetState(lockConditionID); state != condition.StateFulfilled {
		return id, fmt.Errorf("%w: lock payment condition is %s", errors.ErrPolicyViolation, state)
	}
	owner, err := e.assets.Owner(did)
	if err != nil {
		return id, err
	}
	if owner != seller {
		return id, fmt.Errorf("%w: %x does not own did %x", errors.ErrUnauthorized, seller, did)
	}
	if caller != seller && !e.assets.IsProvider(did, caller) {
		return id, fmt.Errorf("%w: %x lacks transfer approval for did %x", errors.ErrUnauthorized, caller, did)
	}
	// Ownership only moves once the transition is known to be legal.
	if err := e.conditions.Validate(KindTransferAsset, id, condition.StateFulfilled); err != nil {
		return id, err
	}
	if err := e.assets.Transfer(did, seller, buyer); err != nil {
		return id, err
	}
	cond, err := e.conditions.Transition(KindTransferAsset, id, condition.StateFulfilled)
	if err != nil {
		return id, err
	}
	e.emit(NewAssetTransferredEvent(cond, did, seller, buyer))
	return id, nil
}
