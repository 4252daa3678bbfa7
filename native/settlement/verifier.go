package settlement

import (
	"bytes"
	"fmt"

	"settlechain/native/condition"
)

// HashPreimageVerifier accepts a proof when its keccak digest matches the
// 32-byte commitment carried in the public parameters. It is the verifier the
// daemon wires by default; deployments with real proof systems swap in their
// own ProofVerifier.
type HashPreimageVerifier struct{}

func (HashPreimageVerifier) Verify(publicParams []byte, proof []byte) (bool, error) {
	if len(publicParams) != 32 {
		return false, fmt.Errorf("public params must be a 32 byte commitment, got %d bytes", len(publicParams))
	}
	digest := condition.Keccak256(proof)
	return bytes.Equal(digest[:], publicParams), nil
}
