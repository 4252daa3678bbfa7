package settlement

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "settlechain/core/errors"
	"settlechain/native/condition"
)

type escrowSetup struct {
	fx          *fixture
	agreementID [32]byte
	didID       [32]byte
	receivers   [][20]byte
	amounts     []*big.Int
	total       *big.Int
	lockID      [32]byte
	releaseID   [32]byte
	escrowID    [32]byte
}

// newEscrowSetup registers a funded lock, an access release and the escrow
// bound to both, with the full payment already sitting in the holder account.
func newEscrowSetup(t *testing.T, releaseTimeOut uint64) *escrowSetup {
	t.Helper()
	fx := newFixture(t)
	s := &escrowSetup{
		fx:          fx,
		agreementID: hash(1),
		didID:       hash(100),
		receivers:   [][20]byte{seller, beneficiary},
		amounts:     []*big.Int{big.NewInt(11), big.NewInt(4)},
		total:       big.NewInt(15),
	}
	if _, err := fx.dids.Register(seller, s.didID, 0, [20]byte{}); err != nil {
		t.Fatalf("register did: %v", err)
	}
	s.lockID = fx.register(t, s.agreementID, KindLockPayment, HashLockPaymentValues(s.didID, holder, "USDX", s.receivers, s.amounts), 0, 0)
	s.releaseID = fx.register(t, s.agreementID, KindAccess, HashAccessValues(s.didID, buyer), 0, releaseTimeOut)
	s.escrowID = fx.register(t, s.agreementID, KindEscrowPayment,
		HashEscrowPaymentValues(s.didID, s.amounts, s.receivers, payer, holder, "USDX", s.lockID, s.releaseID), 0, 0)

	if err := fx.ledger.Mint("USDX", payer, s.total); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := fx.ledger.Approve("USDX", payer, ModuleAddress(KindLockPayment), s.total); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := fx.engine.FulfillLockPayment(payer, s.agreementID, s.didID, holder, "USDX", s.receivers, s.amounts); err != nil {
		t.Fatalf("fulfillLockPayment: %v", err)
	}
	return s
}

func (s *escrowSetup) settle(t *testing.T) (EscrowOutcome, error) {
	t.Helper()
	_, outcome, err := s.fx.engine.FulfillEscrowPayment(buyer, s.agreementID, s.didID, s.amounts, s.receivers, payer, holder, "USDX", s.lockID, s.releaseID)
	return outcome, err
}

func TestEscrowPaysOutAfterRelease(t *testing.T) {
	s := newEscrowSetup(t, 0)
	if _, _, err := s.fx.engine.FulfillAccess(seller, s.agreementID, s.didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}

	outcome, err := s.settle(t)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome != EscrowPaid {
		t.Fatalf("expected paid, got %s", outcome)
	}
	if bal := s.fx.balance(t, holder); bal.Sign() != 0 {
		t.Fatalf("holder retained %s", bal)
	}
	if bal := s.fx.balance(t, seller); bal.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("seller balance: %s", bal)
	}
	if bal := s.fx.balance(t, beneficiary); bal.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("beneficiary balance: %s", bal)
	}
	if s.fx.conditions.GetState(s.escrowID) != condition.StateFulfilled {
		t.Fatalf("escrow condition not fulfilled")
	}
}

func TestEscrowRefundsAfterReleaseAborts(t *testing.T) {
	s := newEscrowSetup(t, 50)

	// the buyer never receives access; the grant expires into Aborted
	s.fx.now += 51
	_, state, err := s.fx.engine.FulfillAccess(seller, s.agreementID, s.didID, buyer)
	if err != nil {
		t.Fatalf("late fulfillAccess: %v", err)
	}
	if state != condition.StateAborted {
		t.Fatalf("expected aborted release, got %s", state)
	}

	outcome, err := s.settle(t)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome != EscrowRefunded {
		t.Fatalf("expected refunded, got %s", outcome)
	}
	if bal := s.fx.balance(t, payer); bal.Cmp(s.total) != 0 {
		t.Fatalf("payer balance after refund: %s", bal)
	}
	if bal := s.fx.balance(t, holder); bal.Sign() != 0 {
		t.Fatalf("holder retained %s", bal)
	}
}

func TestEscrowPendingWhileReleaseUnresolved(t *testing.T) {
	s := newEscrowSetup(t, 0)

	outcome, err := s.settle(t)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome != EscrowPending {
		t.Fatalf("expected pending, got %s", outcome)
	}
	if bal := s.fx.balance(t, holder); bal.Cmp(s.total) != 0 {
		t.Fatalf("pending settlement moved funds: holder has %s", bal)
	}
	if s.fx.conditions.GetState(s.escrowID) != condition.StateUnfulfilled {
		t.Fatalf("pending settlement mutated the escrow condition")
	}

	// the same call later, after the release resolves, settles normally
	if _, _, err := s.fx.engine.FulfillAccess(seller, s.agreementID, s.didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}
	outcome, err = s.settle(t)
	if err != nil {
		t.Fatalf("retry settle: %v", err)
	}
	if outcome != EscrowPaid {
		t.Fatalf("expected paid on retry, got %s", outcome)
	}
}

func TestEscrowPendingWhileLockUnfulfilled(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	didID := hash(100)
	if _, err := fx.dids.Register(seller, didID, 0, [20]byte{}); err != nil {
		t.Fatalf("register did: %v", err)
	}
	receivers := [][20]byte{seller}
	amounts := []*big.Int{big.NewInt(15)}
	lockID := fx.register(t, agreementID, KindLockPayment, HashLockPaymentValues(didID, holder, "USDX", receivers, amounts), 0, 0)
	releaseID := fx.register(t, agreementID, KindAccess, HashAccessValues(didID, buyer), 0, 0)
	fx.register(t, agreementID, KindEscrowPayment,
		HashEscrowPaymentValues(didID, amounts, receivers, payer, holder, "USDX", lockID, releaseID), 0, 0)

	// release resolves first, but nothing was ever locked
	if _, _, err := fx.engine.FulfillAccess(seller, agreementID, didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}
	_, outcome, err := fx.engine.FulfillEscrowPayment(buyer, agreementID, didID, amounts, receivers, payer, holder, "USDX", lockID, releaseID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome != EscrowPending {
		t.Fatalf("expected pending without a funded lock, got %s", outcome)
	}
}

func TestEscrowSettlesAtMostOnce(t *testing.T) {
	s := newEscrowSetup(t, 0)
	if _, _, err := s.fx.engine.FulfillAccess(seller, s.agreementID, s.didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}
	if outcome, err := s.settle(t); err != nil || outcome != EscrowPaid {
		t.Fatalf("first settle: outcome=%s err=%v", outcome, err)
	}

	// top the holder back up to prove a replay cannot drain fresh funds
	if err := s.fx.ledger.Mint("USDX", holder, s.total); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := s.settle(t); !errors.Is(err, coreerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on replay, got %v", err)
	}
	if bal := s.fx.balance(t, holder); bal.Cmp(s.total) != 0 {
		t.Fatalf("replay moved funds: holder has %s", bal)
	}
	if bal := s.fx.balance(t, seller); bal.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("seller paid twice: %s", bal)
	}
}

func TestEscrowBindsToItsOwnLockAndRelease(t *testing.T) {
	s := newEscrowSetup(t, 0)
	if _, _, err := s.fx.engine.FulfillAccess(seller, s.agreementID, s.didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}

	// a second agreement with its own unresolved lock and release
	otherAgreement := hash(2)
	otherLock := s.fx.register(t, otherAgreement, KindLockPayment,
		HashLockPaymentValues(s.didID, holder, "USDX", s.receivers, s.amounts), 0, 0)
	otherRelease := s.fx.register(t, otherAgreement, KindAccess, HashAccessValues(s.didID, buyer), 0, 0)
	s.fx.register(t, otherAgreement, KindEscrowPayment,
		HashEscrowPaymentValues(s.didID, s.amounts, s.receivers, payer, holder, "USDX", otherLock, otherRelease), 0, 0)

	// pointing the second escrow at the first agreement's resolved
	// conditions derives an unregistered identifier
	_, _, err := s.fx.engine.FulfillEscrowPayment(buyer, otherAgreement, s.didID, s.amounts, s.receivers, payer, holder, "USDX", s.lockID, s.releaseID)
	if !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for mismatched prerequisites, got %v", err)
	}

	// the second escrow against its own prerequisites is merely pending
	_, outcome, err := s.fx.engine.FulfillEscrowPayment(buyer, otherAgreement, s.didID, s.amounts, s.receivers, payer, holder, "USDX", otherLock, otherRelease)
	if err != nil {
		t.Fatalf("settle second escrow: %v", err)
	}
	if outcome != EscrowPending {
		t.Fatalf("expected pending, got %s", outcome)
	}
	if bal := s.fx.balance(t, holder); bal.Cmp(s.total) != 0 {
		t.Fatalf("holder drained: %s", bal)
	}
}

func TestEscrowPayoutToHolderReceiverConservesSupply(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	didID := hash(100)
	if _, err := fx.dids.Register(seller, didID, 0, [20]byte{}); err != nil {
		t.Fatalf("register did: %v", err)
	}

	// the holder takes a cut of the payment it custodies
	receivers := [][20]byte{seller, holder}
	amounts := []*big.Int{big.NewInt(11), big.NewInt(4)}
	total := big.NewInt(15)
	lockID := fx.register(t, agreementID, KindLockPayment, HashLockPaymentValues(didID, holder, "USDX", receivers, amounts), 0, 0)
	releaseID := fx.register(t, agreementID, KindAccess, HashAccessValues(didID, buyer), 0, 0)
	fx.register(t, agreementID, KindEscrowPayment,
		HashEscrowPaymentValues(didID, amounts, receivers, payer, holder, "USDX", lockID, releaseID), 0, 0)

	if err := fx.ledger.Mint("USDX", payer, total); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := fx.ledger.Approve("USDX", payer, ModuleAddress(KindLockPayment), total); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := fx.engine.FulfillLockPayment(payer, agreementID, didID, holder, "USDX", receivers, amounts); err != nil {
		t.Fatalf("fulfillLockPayment: %v", err)
	}
	if _, _, err := fx.engine.FulfillAccess(seller, agreementID, didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}

	_, outcome, err := fx.engine.FulfillEscrowPayment(buyer, agreementID, didID, amounts, receivers, payer, holder, "USDX", lockID, releaseID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome != EscrowPaid {
		t.Fatalf("expected paid, got %s", outcome)
	}
	if bal := fx.balance(t, seller); bal.Cmp(big.NewInt(11)) != 0 {
		t.Fatalf("seller balance: %s", bal)
	}
	if bal := fx.balance(t, holder); bal.Cmp(big.NewInt(4)) != 0 {
		t.Fatalf("holder kept more than its share: %s", bal)
	}
	supply := new(big.Int).Add(fx.balance(t, seller), fx.balance(t, holder))
	supply.Add(supply, fx.balance(t, payer))
	if supply.Cmp(total) != 0 {
		t.Fatalf("supply inflated: total=%s, want %s", supply, total)
	}
}

func TestEscrowRejectsUnderfundedHolder(t *testing.T) {
	s := newEscrowSetup(t, 0)
	if _, _, err := s.fx.engine.FulfillAccess(seller, s.agreementID, s.didID, buyer); err != nil {
		t.Fatalf("fulfillAccess: %v", err)
	}
	// drain the holder out-of-band
	if err := s.fx.ledger.Transfer("USDX", holder, outsider, s.total); err != nil {
		t.Fatalf("drain holder: %v", err)
	}
	if _, err := s.settle(t); err == nil {
		t.Fatalf("expected underfunded holder error")
	}
	if s.fx.conditions.GetState(s.escrowID) != condition.StateUnfulfilled {
		t.Fatalf("failed payout must leave the escrow unfulfilled")
	}
}
