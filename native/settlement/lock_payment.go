package settlement

import (
	"fmt"
	"math/big"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashLockPaymentValues computes the canonical parameter hash of a lock
// payment condition. Callers must reproduce the exact receiver and amount
// order used at agreement creation.
func HashLockPaymentValues(did [32]byte, holder [20]byte, token string, receivers [][20]byte, amounts []*big.Int) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(did)
	enc.WriteAddress(holder)
	enc.WriteString(token)
	enc.WriteUint32(uint32(len(receivers)))
	for _, receiver := range receivers {
		enc.WriteAddress(receiver)
	}
	enc.WriteUint32(uint32(len(amounts)))
	for _, amount := range amounts {
		enc.WriteBig(amount)
	}
	return enc.Sum()
}

// FulfillLockPayment pulls the total payment from the caller into the holder
// account and fulfills the lock condition. The caller must have granted a
// token allowance to the lock payment module address, and the receiver split
// must satisfy the DID's royalty policy.
func (e *Engine) FulfillLockPayment(caller [20]byte, agreementID, did [32]byte, holder [20]byte, token string, receivers [][20]byte, amounts []*big.Int) ([32]byte, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, err
	}
	if e.assets == nil {
		return [32]byte{}, errNilAssets
	}
	if e.ledger == nil {
		return [32]byte{}, errNilLedger
	}
	if len(receivers) == 0 || len(receivers) != len(amounts) {
		return [32]byte{}, fmt.Errorf("lock payment: receivers and amounts must be non-empty and of equal length")
	}
	total, err := sumAmounts(amounts)
	if err != nil {
		return [32]byte{}, err
	}
	id := condition.GenerateID(agreementID, KindLockPayment, HashLockPaymentValues(did, holder, token, receivers, amounts))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, err
	}
	if err := e.assets.CheckRoyalties(did, receivers, amounts); err != nil {
		return id, fmt.Errorf("%w: %v", errors.ErrPolicyViolation, err)
	}
	// Funds only move once the transition is known to be legal.
	if err := e.conditions.Validate(KindLockPayment, id, condition.StateFulfilled); err != nil {
		return id, err
	}
	if err := e.ledger.TransferFrom(token, ModuleAddress(KindLockPayment), caller, holder, total); err != nil {
		return id, err
	}
	cond, err := e.conditions.Transition(KindLockPayment, id, condition.StateFulfilled)
	if err != nil {
		return id, err
	}
	e.emit(NewPaymentLockedEvent(cond, did, caller, holder, token, total))
	return id, nil
}
