package settlement

import (
	"encoding/hex"
	"fmt"

	"settlechain/core/errors"
	"settlechain/native/condition"
)

// HashWhitelistValues computes the canonical parameter hash of a whitelist
// condition.
func HashWhitelistValues(listID [32]byte, subject [20]byte) [32]byte {
	enc := condition.NewEncoder()
	enc.WriteHash(listID)
	enc.WriteAddress(subject)
	return enc.Sum()
}

func whitelistKey(listID [32]byte, addr [20]byte) []byte {
	return []byte("whitelist/" + hex.EncodeToString(listID[:]) + "/" + hex.EncodeToString(addr[:]))
}

// AddToWhitelist records the address as a member of the named list.
func (e *Engine) AddToWhitelist(listID [32]byte, addr [20]byte) error {
	if e.db == nil {
		return fmt.Errorf("whitelist: store not configured")
	}
	return e.db.Put(whitelistKey(listID, addr), []byte{1})
}

// RemoveFromWhitelist deletes the address from the named list.
func (e *Engine) RemoveFromWhitelist(listID [32]byte, addr [20]byte) error {
	if e.db == nil {
		return fmt.Errorf("whitelist: store not configured")
	}
	return e.db.Delete(whitelistKey(listID, addr))
}

// IsWhitelisted reports list membership.
func (e *Engine) IsWhitelisted(listID [32]byte, addr [20]byte) bool {
	if e.db == nil {
		return false
	}
	ok, err := e.db.Has(whitelistKey(listID, addr))
	return err == nil && ok
}

// FulfillWhitelist fulfills once the subject is a member of the referenced
// list.
func (e *Engine) FulfillWhitelist(caller [20]byte, agreementID, listID [32]byte, subject [20]byte) ([32]byte, error) {
	if err := e.guard(); err != nil {
		return [32]byte{}, err
	}
	id := condition.GenerateID(agreementID, KindWhitelist, HashWhitelistValues(listID, subject))

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.require(id); err != nil {
		return id, err
	}
	if !e.IsWhitelisted(listID, subject) {
		return id, fmt.Errorf("%w: %x is not whitelisted on list %x", errors.ErrPolicyViolation, subject, listID)
	}
	if _, err := e.conditions.Transition(KindWhitelist, id, condition.StateFulfilled); err != nil {
		return id, err
	}
	return id, nil
}
