package condition

import (
	"math/big"
	"testing"
)

func TestGenerateIDIsDeterministic(t *testing.T) {
	agreementID := Keccak256([]byte("agreement"))
	paramHash := Keccak256([]byte("params"))
	a := GenerateID(agreementID, "access", paramHash)
	b := GenerateID(agreementID, "access", paramHash)
	if a != b {
		t.Fatalf("same inputs produced different ids")
	}
}

func TestGenerateIDSeparatesInputs(t *testing.T) {
	agreementID := Keccak256([]byte("agreement"))
	otherAgreement := Keccak256([]byte("agreement-2"))
	paramHash := Keccak256([]byte("params"))
	otherParams := Keccak256([]byte("params-2"))

	base := GenerateID(agreementID, "access", paramHash)
	if GenerateID(otherAgreement, "access", paramHash) == base {
		t.Fatalf("agreement id does not influence the derivation")
	}
	if GenerateID(agreementID, "access.proof", paramHash) == base {
		t.Fatalf("kind does not influence the derivation")
	}
	if GenerateID(agreementID, "access", otherParams) == base {
		t.Fatalf("param hash does not influence the derivation")
	}
}

func TestEncoderLengthPrefixPreventsAliasing(t *testing.T) {
	a := NewEncoder()
	a.WriteString("ab")
	a.WriteString("c")

	b := NewEncoder()
	b.WriteString("a")
	b.WriteString("bc")

	if a.Sum() == b.Sum() {
		t.Fatalf("adjacent variable fields aliased each other")
	}
}

func TestEncoderBigWidth(t *testing.T) {
	a := NewEncoder()
	a.WriteBig(big.NewInt(7))
	a.WriteBig(big.NewInt(11))

	b := NewEncoder()
	b.WriteBig(big.NewInt(7))
	b.WriteBig(big.NewInt(11))
	if a.Sum() != b.Sum() {
		t.Fatalf("equal big sequences hashed differently")
	}

	c := NewEncoder()
	c.WriteBig(nil)
	d := NewEncoder()
	d.WriteBig(big.NewInt(0))
	if c.Sum() != d.Sum() {
		t.Fatalf("nil and zero should encode identically")
	}
}
