package settlement

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashSignValues computes the canonical parameter hash of a signature
// condition.
func HashSignValues(message [32]byte, signer [20]byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(message)
	enc.WriteAddress(signer)
	return enc.Sum()
}

// FulfillSign fulfills the condition when the submitted 65-byte recoverable
// ECDSA signature over the message digest recovers to the expected signer
// address.
func (e *Engine) FulfillSign(caller [20]byte, agreementID [32]byte, message [32]byte, signer [20]byte, signature []byte) ([32]byte, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, err
	}
	id := condition.GenerateID(agreementID, KindSign, HashSignValues(message, signer))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, err
	}
	if len(signature) != ethcrypto.SignatureLength {
		return id, fmt.Errorf("%w: signature must be %d bytes", errors.ErrUnauthorized, ethcrypto.SignatureLength)
	}
	pub, err := ethcrypto.SigToPub(message[:], signature)
	if err != nil {
		return id, fmt.Errorf("%w: signature recovery failed: %v", errors.ErrUnauthorized, err)
	}
	recovered := ethcrypto.PubkeyToAddress(*pub)
	if [20]byte(recovered) != signer {
		return id, fmt.Errorf("%w: signature does not recover to %x", errors.ErrUnauthorized, signer)
	}
	if _, err := e.conditions.Transition(KindSign, id, condition.StateFulfilled); err != nil {
		return id, err
	}
	return id, nil
}
