package settlement

import (
	"fmt"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashAccessValues computes the canonical parameter hash of an access
// condition.
func HashAccessValues(did [32]byte, grantee [20]byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(did)
	enc.WriteAddress(grantee)
	return enc.Sum()
}

// HashComputeExecutionValues computes the canonical parameter hash of a
// compute execution condition.
func HashComputeExecutionValues(did [32]byte, consumer [20]byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(did)
	enc.WriteAddress(consumer)
	return enc.Sum()
}

// FulfillAccess grants the grantee access to the DID. The caller must be the
// DID owner or an authorized provider. A fulfillment attempted past the
// deadline resolves the condition to Aborted: the grant expires instead of
// silently succeeding.
func (e *Engine) FulfillAccess(caller [20]byte, agreementID, did [32]byte, grantee [20]byte) ([32]byte, condition.State, error) {
	return e.fulfillGrant(KindAccess, caller, agreementID, did, grantee, HashAccessValues(did, grantee))
}

// FulfillComputeExecution records that compute may run against the DID for
// the consumer. Authorization and timeout behaviour match the access
// condition.
func (e *Engine) FulfillComputeExecution(caller [20]byte, agreementID, did [32]byte, consumer [20]byte) ([32]byte, condition.State, error) {
	return e.fulfillGrant(KindComputeExecution, caller, agreementID, did, consumer, HashComputeExecutionValues(did, consumer))
}

func (e *Engine) fulfillGrant(kind string, caller [20]byte, agreementID, did [32]byte, grantee [20]byte, paramHash [32]byte) ([32]byte, condition.State, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, condition.StateUnfulfilled, err
	}
	if e.assets == nil {
		return [32]byte{}, condition.StateUnfulfilled, errNilAssets
	}
	id := condition.GenerateID(agreementID, kind, paramHash)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, condition.StateUnfulfilled, err
	}
	owner, err := e.assets.Owner(did)
	if err != nil {
		return id, condition.StateUnfulfilled, err
	}
	if caller != owner && !e.assets.IsProvider(did, caller) {
		return id, condition.StateUnfulfilled, fmt.Errorf("%w: %x is neither owner nor provider of did %x", errors.ErrUnauthorized, caller, did)
	}
	state, err := e.fulfill(kind, id)
	if err != nil {
		return id, condition.StateUnfulfilled, err
	}
	e.emit(NewGrantEvent(kind, id, did, grantee, state))
	return id, state, nil
}
