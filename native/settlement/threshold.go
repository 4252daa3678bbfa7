package settlement

import (
	"fmt"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashThresholdValues computes the canonical parameter hash of a threshold
// condition over the ordered input condition ids.
func HashThresholdValues(inputConditionIDs [][32]byte, threshold uint32) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteUint32(uint32(len(inputConditionIDs)))
	for _, id := range inputConditionIDs {
		enc.WriteHash(id)
	}
	enc.WriteUint32(threshold)
	return enc.Sum()
}

// FulfillThreshold fulfills once at least `threshold` of the input
// conditions are Fulfilled. Input states are read from the condition store,
// never from caller claims.
func (e *Engine) FulfillThreshold(caller [20]byte, agreementID [32]byte, inputConditionIDs [][32]byte, threshold uint32) ([32]byte, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, err
	}
	if threshold == 0 || int(threshold) > len(inputConditionIDs) {
		return [32]byte{}, fmt.Errorf("threshold: threshold must be between 1 and %d", len(inputConditionIDs))
	}
	id := condition.GenerateID(agreementID, KindThreshold, HashThresholdValues(inputConditionIDs, threshold))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, err
	}
	fulfilled := uint32(0)
	for _, inputID := range inputConditionIDs {
		if e.conditions.GetState(inputID) == condition.StateFulfilled {
			fulfilled++
		}
	}
	if fulfilled < threshold {
		return id, fmt.Errorf("%w: %d of %d required input conditions fulfilled", errors.ErrPolicyViolation, fulfilled, threshold)
	}
	if _, err := e.conditions.Transition(KindThreshold, id, condition.StateFulfilled); err != nil {
		return id, err
	}
	return id, nil
}
