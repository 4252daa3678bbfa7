package settlement

import (
	"fmt"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashAccessProofValues computes the canonical parameter hash of a
// proof-gated access condition. The public parameters are bound into the
// identifier so a proof cannot be replayed against different parameters.
func HashAccessProofValues(did [32]byte, grantee [20]byte, publicParams []byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(did)
	enc.WriteAddress(grantee)
	enc.WriteHash(condition.Keccak256(publicParams))
	return enc.Sum()
}

// FulfillAccessProof grants access once the submitted proof verifies against
// the public parameters bound at agreement creation. Verification is
// delegated to the injected oracle.
func (e *Engine) FulfillAccessProof(caller [20]byte, agreementID, did [32]byte, grantee [20]byte, publicParams, proof []byte) ([32]byte, condition.State, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, condition.StateUnfulfilled, err
	}
	if e.verifier == nil {
		return [32]byte{}, condition.StateUnfulfilled, errNilVerifier
	}
	id := condition.GenerateID(agreementID, KindAccessProof, HashAccessProofValues(did, grantee, publicParams))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, condition.StateUnfulfilled, err
	}
	accepted, err := e.verifier.Verify(publicParams, proof)
	if err != nil {
		return id, condition.StateUnfulfilled, fmt.Errorf("access proof: verify: %w", err)
	}
	if !accepted {
		return id, condition.StateUnfulfilled, fmt.Errorf("%w: proof rejected", errors.ErrPolicyViolation)
	}
	state, err := e.fulfill(KindAccessProof, id)
	if err != nil {
		return id, condition.StateUnfulfilled, err
	}
	e.emit(NewGrantEvent(KindAccessProof, id, did, grantee, state))
	return id, state, nil
}
