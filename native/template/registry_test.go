package template

import (
	"errors"
	"testing"

	coreerrors "settlechain/core/errors"
	"settlechain/storage"
)

var (
	owner    = addr(1)
	proposer = addr(2)
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(storage.NewMemDB(), owner)
	now := int64(100)
	reg.SetNowFunc(func() int64 { return now })
	return reg
}

func TestProposeStartsProposed(t *testing.T) {
	reg := newTestRegistry(t)
	tpl, err := reg.Propose(proposer, "sales", []string{"lock.payment", "transfer.asset", "escrow.payment"})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if tpl.State != StateProposed {
		t.Fatalf("expected proposed, got %s", tpl.State)
	}
	if reg.IsApproved("sales") {
		t.Fatalf("proposed template must not be approved")
	}
}

func TestProposeRejectsDuplicate(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Propose(proposer, "sales", []string{"access"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := reg.Propose(proposer, "sales", []string{"access"}); !errors.Is(err, coreerrors.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestApproveIsOwnerOnly(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Propose(proposer, "sales", []string{"access"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := reg.Approve(proposer, "sales"); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := reg.Approve(owner, "sales"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !reg.IsApproved("sales") {
		t.Fatalf("expected approved template")
	}
}

func TestRevokeDisablesTemplate(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Propose(proposer, "sales", []string{"access"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := reg.Approve(owner, "sales"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := reg.Revoke(owner, "sales"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if reg.IsApproved("sales") {
		t.Fatalf("revoked template must not be approved")
	}
	if err := reg.Approve(owner, "sales"); !errors.Is(err, coreerrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestConditionKindsKeepsOrder(t *testing.T) {
	reg := newTestRegistry(t)
	kinds := []string{"lock.payment", "access", "escrow.payment"}
	if _, err := reg.Propose(proposer, "sales", kinds); err != nil {
		t.Fatalf("propose: %v", err)
	}
	got, err := reg.ConditionKinds("sales")
	if err != nil {
		t.Fatalf("conditionKinds: %v", err)
	}
	if len(got) != len(kinds) {
		t.Fatalf("expected %d kinds, got %d", len(kinds), len(got))
	}
	for i := range kinds {
		if got[i] != kinds[i] {
			t.Fatalf("kind %d: expected %s, got %s", i, kinds[i], got[i])
		}
	}
}

func TestGetUnknownTemplate(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Get("missing"); !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
