package settlement

import (
	"errors"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	coreerrors "settlechain/core/errors"
	"settlechain/native/condition"
)

func TestFulfillSignVerifiesSignature(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	message := condition.Keccak256([]byte("settlement terms"))

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := [20]byte(ethcrypto.PubkeyToAddress(key.PublicKey))
	signID := fx.register(t, agreementID, KindSign, HashSignValues(message, signer), 0, 0)

	signature, err := ethcrypto.Sign(message[:], key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := fx.engine.FulfillSign(outsider, agreementID, message, signer, signature)
	if err != nil {
		t.Fatalf("fulfillSign: %v", err)
	}
	if got != signID {
		t.Fatalf("unexpected condition id")
	}
	if fx.conditions.GetState(signID) != condition.StateFulfilled {
		t.Fatalf("sign condition not fulfilled")
	}
}

func TestFulfillSignRejectsWrongSigner(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	message := condition.Keccak256([]byte("settlement terms"))

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	expected := addr(42) // not the key's address
	signID := fx.register(t, agreementID, KindSign, HashSignValues(message, expected), 0, 0)

	signature, err := ethcrypto.Sign(message[:], key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := fx.engine.FulfillSign(outsider, agreementID, message, expected, signature); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if fx.conditions.GetState(signID) != condition.StateUnfulfilled {
		t.Fatalf("rejected signature fulfilled the condition")
	}
}

func TestFulfillSignRejectsMalformedSignature(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	message := condition.Keccak256([]byte("settlement terms"))
	fx.register(t, agreementID, KindSign, HashSignValues(message, addr(42)), 0, 0)
	if _, err := fx.engine.FulfillSign(outsider, agreementID, message, addr(42), []byte("short")); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestFulfillHashLock(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	preimage := []byte("the secret")
	lockID := fx.register(t, agreementID, KindHashLock, HashLockValues(preimage), 0, 0)

	// a wrong preimage derives an unregistered identifier
	if _, err := fx.engine.FulfillHashLock(outsider, agreementID, []byte("wrong")); !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := fx.engine.FulfillHashLock(outsider, agreementID, preimage); err != nil {
		t.Fatalf("fulfillHashLock: %v", err)
	}
	if fx.conditions.GetState(lockID) != condition.StateFulfilled {
		t.Fatalf("hash lock not fulfilled")
	}
}

func TestFulfillThreshold(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	inputs := make([][32]byte, 3)
	for i := range inputs {
		inputs[i] = fx.register(t, agreementID, KindHashLock, condition.Keccak256([]byte{byte(i)}), 0, 0)
	}
	thresholdID := fx.register(t, agreementID, KindThreshold, HashThresholdValues(inputs, 2), 0, 0)

	if _, err := fx.engine.FulfillThreshold(outsider, agreementID, inputs, 2); !errors.Is(err, coreerrors.ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation with no inputs fulfilled, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := fx.conditions.Transition(KindHashLock, inputs[i], condition.StateFulfilled); err != nil {
			t.Fatalf("seed input %d: %v", i, err)
		}
	}
	if _, err := fx.engine.FulfillThreshold(outsider, agreementID, inputs, 2); err != nil {
		t.Fatalf("fulfillThreshold: %v", err)
	}
	if fx.conditions.GetState(thresholdID) != condition.StateFulfilled {
		t.Fatalf("threshold condition not fulfilled")
	}
}

func TestFulfillThresholdValidatesBounds(t *testing.T) {
	fx := newFixture(t)
	inputs := [][32]byte{hash(1), hash(2)}
	if _, err := fx.engine.FulfillThreshold(outsider, hash(9), inputs, 0); err == nil {
		t.Fatalf("expected error for zero threshold")
	}
	if _, err := fx.engine.FulfillThreshold(outsider, hash(9), inputs, 3); err == nil {
		t.Fatalf("expected error for threshold above input count")
	}
}

func TestFulfillWhitelist(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	listID := hash(50)
	subject := addr(8)
	condID := fx.register(t, agreementID, KindWhitelist, HashWhitelistValues(listID, subject), 0, 0)

	if _, err := fx.engine.FulfillWhitelist(outsider, agreementID, listID, subject); !errors.Is(err, coreerrors.ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation for non-member, got %v", err)
	}
	if err := fx.engine.AddToWhitelist(listID, subject); err != nil {
		t.Fatalf("addToWhitelist: %v", err)
	}
	if !fx.engine.IsWhitelisted(listID, subject) {
		t.Fatalf("membership not recorded")
	}
	if _, err := fx.engine.FulfillWhitelist(outsider, agreementID, listID, subject); err != nil {
		t.Fatalf("fulfillWhitelist: %v", err)
	}
	if fx.conditions.GetState(condID) != condition.StateFulfilled {
		t.Fatalf("whitelist condition not fulfilled")
	}

	if err := fx.engine.RemoveFromWhitelist(listID, subject); err != nil {
		t.Fatalf("removeFromWhitelist: %v", err)
	}
	if fx.engine.IsWhitelisted(listID, subject) {
		t.Fatalf("membership survived removal")
	}
}

func TestFulfillAccessProof(t *testing.T) {
	fx := newFixture(t)
	agreementID := hash(1)
	didID := hash(100)
	if _, err := fx.dids.Register(seller, didID, 0, [20]byte{}); err != nil {
		t.Fatalf("register did: %v", err)
	}
	proof := []byte("knowledge of the secret")
	commitment := condition.Keccak256(proof)
	proofID := fx.register(t, agreementID, KindAccessProof, HashAccessProofValues(didID, buyer, commitment[:]), 0, 0)

	if _, _, err := fx.engine.FulfillAccessProof(outsider, agreementID, didID, buyer, commitment[:], []byte("bogus")); !errors.Is(err, coreerrors.ErrPolicyViolation) {
		t.Fatalf("expected ErrPolicyViolation for bad proof, got %v", err)
	}
	_, state, err := fx.engine.FulfillAccessProof(outsider, agreementID, didID, buyer, commitment[:], proof)
	if err != nil {
		t.Fatalf("fulfillAccessProof: %v", err)
	}
	if state != condition.StateFulfilled {
		t.Fatalf("expected fulfilled, got %s", state)
	}
	if fx.conditions.GetState(proofID) != condition.StateFulfilled {
		t.Fatalf("proof condition not fulfilled")
	}
}

func TestModuleAddressesAreDistinct(t *testing.T) {
	seen := make(map[[20]byte]string)
	for _, kind := range Kinds() {
		addr := ModuleAddress(kind)
		if prior, dup := seen[addr]; dup {
			t.Fatalf("module address collision between %s and %s", prior, kind)
		}
		seen[addr] = kind
	}
}

func TestSupportsKind(t *testing.T) {
	fx := newFixture(t)
	for _, kind := range Kinds() {
		if !fx.engine.SupportsKind(kind) {
			t.Fatalf("kind %s not supported", kind)
		}
	}
	if fx.engine.SupportsKind("bogus") {
		t.Fatalf("unknown kind reported as supported")
	}
}
