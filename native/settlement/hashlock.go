package settlement

import (
	"settlechain/native/condition"
)

// HashLockValues computes the parameter hash of a hash lock condition: the
// keccak256 digest of the secret preimage. Unlike the other kinds this is a
// plain digest, so the lock hash can be produced with standard tooling
// without knowing the engine's canonical encoding.
func HashLockValues(preimage []byte) [32]byte {
	return condition.Keccak256(preimage)
}

// FulfillHashLock fulfills the condition when the submitted preimage hashes
// to the lock hash bound at agreement creation. A wrong preimage derives a
// different identifier and fails the existence check before any state is
// touched.
func (e *Engine) FulfillHashLock(caller [20]byte, agreementID [32]byte, preimage []byte) ([32]byte, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, err
	}
	id := condition.GenerateID(agreementID, KindHashLock, HashLockValues(preimage))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, err
	}
	if _, err := e.conditions.Transition(KindHashLock, id, condition.StateFulfilled); err != nil {
		return id, err
	}
	return id, nil
}
