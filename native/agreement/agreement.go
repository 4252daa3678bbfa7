package agreement

import "settlechain/native/condition"

// ModuleName is the identity under which the store creates conditions. The
// condition store must delegate creation rights to this name.
const ModuleName = "agreement"

// Agreement binds an ordered set of condition identifiers to a DID under an
// approved template. The binding is immutable after creation; only the
// referenced conditions mutate.
type Agreement struct {
	ID           [32]byte   `json:"id"`
	DID          [32]byte   `json:"did"`
	TemplateID   string     `json:"templateId"`
	ConditionIDs [][32]byte `json:"conditionIds"`
	CreatedBy    [20]byte   `json:"createdBy"`
	CreatedAt    int64      `json:"createdAt"`
}

// Clone returns a copy of the agreement.
func (a *Agreement) Clone() *Agreement {
	if a == nil {
		return nil
	}
	clone := *a
	clone.ConditionIDs = append([][32]byte(nil), a.ConditionIDs...)
	return &clone
}

// DeriveID mints an agreement identifier from a caller-chosen seed and the
// creator address. Each creator owns a private namespace of seeds while the
// resulting identifiers stay globally unique.
func DeriveID(seed [32]byte, creator [20]byte) [32]byte {
	return condition.Keccak256(seed[:], creator[:])
}
