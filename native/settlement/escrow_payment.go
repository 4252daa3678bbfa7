package settlement

import (
	"fmt"
	"math/big"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// EscrowOutcome reports how an escrow fulfillment call resolved.
type EscrowOutcome uint8

const (
	// EscrowPending means a prerequisite condition has not resolved yet.
	// The call is a deliberate no-op and may be retried.
	EscrowPending EscrowOutcome = iota
	// EscrowPaid means the locked funds were distributed to the receivers.
	EscrowPaid
	// EscrowRefunded means the locked funds went back to the payer.
	EscrowRefunded
)

func (o EscrowOutcome) String() string {
	switch o {
	case EscrowPending:
		return "pending"
	case EscrowPaid:
		return "paid"
	case EscrowRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// HashEscrowPaymentValues computes the canonical parameter hash of an escrow
// payment condition. The lock and release condition ids are part of the
// parameters: each escrow instance is bound to exactly one (lock, release)
// pair, so a stale or mismatched id from another agreement can never address
// this escrow's funds.
func HashEscrowPaymentValues(did [32]byte, amounts []*big.Int, receivers [][20]byte, payer, holder [20]byte, token string, lockConditionID, releaseConditionID [32]byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(did)
	enc.WriteUint32(uint32(len(amounts)))
	for _, amount := range amounts {
		enc.WriteBig(amount)
	}
	enc.WriteUint32(uint32(len(receivers)))
	for _, receiver := range receivers {
		enc.WriteAddress(receiver)
	}
	enc.WriteAddress(payer)
	enc.WriteAddress(holder)
	enc.WriteString(token)
	enc.WriteHash(lockConditionID)
	enc.WriteHash(releaseConditionID)
	return enc.Sum()
}

// FulfillEscrowPayment settles the escrow: it pays the receivers when the
// release condition is Fulfilled, refunds the payer when it is Aborted, and
// no-ops while either prerequisite is unresolved. The escrow condition
// itself transitions to Fulfilled exactly once, atomically with the
// transfers, which is what makes a second settlement attempt fail with
// ErrInvalidTransition instead of draining the holder again.
func (e *Engine) FulfillEscrowPayment(caller [20]byte, agreementID, did [32]byte, amounts []*big.Int, receivers [][20]byte, payer, holder [20]byte, token string, lockConditionID, releaseConditionID [32]byte) ([32]byte, EscrowOutcome, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, EscrowPending, err
	}
	if e.ledger == nil {
		return [32]byte{}, EscrowPending, errNilLedger
	}
	if len(receivers) == 0 || len(receivers) != len(amounts) {
		return [32]byte{}, EscrowPending, fmt.Errorf("escrow payment: receivers and amounts must be non-empty and of equal length")
	}
	total, err := sumAmounts(amounts)
	if err != nil {
		return [32]byte{}, EscrowPending, err
	}
	paramHash := HashEscrowPaymentValues(did, amounts, receivers, payer, holder, token, lockConditionID, releaseConditionID)
	id := condition.GenerateID(agreementID, KindEscrowPayment, paramHash)

	e.mu.Lock()
	defer e.mu.Unlock()
	cond, err := e.require(id)
	if err != nil {
		return id, EscrowPending, err
	}
	if cond.State != condition.StateUnfulfilled {
		return id, EscrowPending, fmt.Errorf("%w: escrow already settled (%s)", errors.ErrInvalidTransition, cond.State)
	}
	if e.conditions.GetState(lockConditionID) != condition.StateFulfilled {
		return id, EscrowPending, nil
	}
	switch e.conditions.GetState(releaseConditionID) {
	case condition.StateFulfilled:
		if err := e.escrowPayout(id, holder, token, receivers, amounts, total); err != nil {
			return id, EscrowPending, err
		}
		e.emit(NewEscrowSettledEvent(id, did, token, total, EscrowPaid))
		return id, EscrowPaid, nil
	case condition.StateAborted:
		if err := e.escrowRefund(id, holder, payer, token, total); err != nil {
			return id, EscrowPending, err
		}
		e.emit(NewEscrowSettledEvent(id, did, token, total, EscrowRefunded))
		return id, EscrowRefunded, nil
	default:
		return id, EscrowPending, nil
	}
}

func (e *Engine) escrowPayout(id [32]byte, holder [20]byte, token string, receivers [][20]byte, amounts []*big.Int, total *big.Int) error {
	if err := e.conditions.Validate(KindEscrowPayment, id, condition.StateFulfilled); err != nil {
		return err
	}
	balance, err := e.ledger.BalanceOf(token, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(total) < 0 {
		return fmt.Errorf("escrow payment: holder balance %s below payout total %s", balance, total)
	}
	for i := range receivers {
		if err := e.ledger.Transfer(token, holder, receivers[i], amounts[i]); err != nil {
			return err
		}
	}
	_, err = e.conditions.Transition(KindEscrowPayment, id, condition.StateFulfilled)
	return err
}

func (e *Engine) escrowRefund(id [32]byte, holder, payer [20]byte, token string, total *big.Int) error {
	if err := e.conditions.Validate(KindEscrowPayment, id, condition.StateFulfilled); err != nil {
		return err
	}
	balance, err := e.ledger.BalanceOf(token, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(total) < 0 {
		return fmt.Errorf("escrow payment: holder balance %s below refund total %s", balance, total)
	}
	if err := e.ledger.Transfer(token, holder, payer, total); err != nil {
		return err
	}
	_, err = e.conditions.Transition(KindEscrowPayment, id, condition.StateFulfilled)
	return err
}
