package main

import (
	"math/big"
	"testing"

	"settlechain/config"
	"settlechain/native/token"
	"settlechain/storage"
)

func TestSeedGenesisMintsExactlyOnce(t *testing.T) {
	db := storage.NewMemDB()
	ledger := token.NewLedger(db, "USDX")
	allocs := []config.Alloc{{
		Address: "0100000000000000000000000000000000000000",
		Token:   "USDX",
		Amount:  "100",
	}}
	addr, err := config.ParseAddress(allocs[0].Address)
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}

	if err := seedGenesis(db, ledger, allocs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	bal, err := ledger.BalanceOf("USDX", addr)
	if err != nil {
		t.Fatalf("balanceOf: %v", err)
	}
	if bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100, got %s", bal)
	}

	// a restart must not top the balance back up
	if err := seedGenesis(db, ledger, allocs); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	bal, _ = ledger.BalanceOf("USDX", addr)
	if bal.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("restart re-minted: %s", bal)
	}

	// even after the account spends down to zero
	var sink [20]byte
	sink[0] = 2
	if err := ledger.Transfer("USDX", addr, sink, big.NewInt(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := seedGenesis(db, ledger, allocs); err != nil {
		t.Fatalf("reseed after spend: %v", err)
	}
	bal, _ = ledger.BalanceOf("USDX", addr)
	if bal.Sign() != 0 {
		t.Fatalf("spent-to-zero account re-minted: %s", bal)
	}
}

func TestSeedGenesisRejectsBadAmount(t *testing.T) {
	db := storage.NewMemDB()
	ledger := token.NewLedger(db, "USDX")
	allocs := []config.Alloc{{
		Address: "0100000000000000000000000000000000000000",
		Token:   "USDX",
		Amount:  "not-a-number",
	}}
	if err := seedGenesis(db, ledger, allocs); err == nil {
		t.Fatalf("expected invalid amount error")
	}
}
