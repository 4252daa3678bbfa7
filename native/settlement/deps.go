package settlement

import (
	"math/big"

	"settlechain/native/condition"
)

// Condition kinds registered with the engine. The kind doubles as the
// transition identity registered in the condition store.
const (
	KindLockPayment      = "lock.payment"
	KindAccess           = "access"
	KindAccessProof      = "access.proof"
	KindComputeExecution = "compute.execution"
	KindTransferAsset    = "transfer.asset"
	KindEscrowPayment    = "escrow.payment"
	KindSign             = "sign"
	KindHashLock         = "hash.lock"
	KindThreshold        = "threshold"
	KindWhitelist        = "whitelist"
)

var kindPolicies = map[string]condition.TimeoutPolicy{
	KindLockPayment:      condition.TimeoutRejects,
	KindAccess:           condition.TimeoutAborts,
	KindAccessProof:      condition.TimeoutAborts,
	KindComputeExecution: condition.TimeoutAborts,
	KindTransferAsset:    condition.TimeoutRejects,
	KindEscrowPayment:    condition.TimeoutRejects,
	KindSign:             condition.TimeoutRejects,
	KindHashLock:         condition.TimeoutRejects,
	KindThreshold:        condition.TimeoutRejects,
	KindWhitelist:        condition.TimeoutRejects,
}

// Kinds returns the supported condition kinds in template declaration order.
func Kinds() []string {
	return []string{
		KindLockPayment,
		KindAccess,
		KindAccessProof,
		KindComputeExecution,
		KindTransferAsset,
		KindEscrowPayment,
		KindSign,
		KindHashLock,
		KindThreshold,
		KindWhitelist,
	}
}

// PolicyFor returns the timeout resolution policy of the kind.
func PolicyFor(kind string) condition.TimeoutPolicy {
	policy, ok := kindPolicies[kind]
	if !ok {
		return condition.TimeoutRejects
	}
	return policy
}

// ModuleAddress derives the deterministic ledger address a condition kind
// operates under. Payers grant token allowances to the lock payment module
// address before fulfilling a lock.
func ModuleAddress(kind string) [20]byte {
	hash := condition.Keccak256([]byte("settlechain/module/" + kind))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// AssetRegistry is the DID registry collaborator consumed by the engine.
type AssetRegistry interface {
	Exists(did [32]byte) bool
	Owner(did [32]byte) ([20]byte, error)
	IsProvider(did [32]byte, addr [20]byte) bool
	CheckRoyalties(did [32]byte, receivers [][20]byte, amounts []*big.Int) error
	Transfer(did [32]byte, from, to [20]byte) error
}

// TokenLedger is the token collaborator consumed by the payment conditions.
type TokenLedger interface {
	BalanceOf(token string, addr [20]byte) (*big.Int, error)
	Transfer(token string, from, to [20]byte, amount *big.Int) error
	TransferFrom(token string, spender, from, to [20]byte, amount *big.Int) error
}

// ProofVerifier accepts or rejects a submitted proof for the given public
// parameters. Proof generation and verification internals live outside the
// engine.
type ProofVerifier interface {
	Verify(publicParams []byte, proof []byte) (bool, error)
}
