package condition

import "fmt"

// State represents the lifecycle of a single condition. Transitions are
// forward-only: once a condition reaches Fulfilled or Aborted no further
// transition is accepted.
type State uint8

const (
	StateUninitialized State = iota
	StateUnfulfilled
	StateFulfilled
	StateAborted
)

// Valid reports whether the state value is within the supported range.
func (s State) Valid() bool {
	switch s {
	case StateUninitialized, StateUnfulfilled, StateFulfilled, StateAborted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the state permits no further transitions.
func (s State) Terminal() bool {
	return s == StateFulfilled || s == StateAborted
}

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUnfulfilled:
		return "unfulfilled"
	case StateFulfilled:
		return "fulfilled"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// TimeoutPolicy controls how a condition kind resolves a fulfillment attempt
// made after the time-out has elapsed: either the call is rejected with
// ErrTimedOut, or the condition is converted to Aborted and the caller is
// told the intent expired.
type TimeoutPolicy uint8

const (
	TimeoutRejects TimeoutPolicy = iota
	TimeoutAborts
)

// Condition captures one obligation inside an agreement. TimeLock and
// TimeOut are second offsets from CreatedAt; zero disables the respective
// bound. Kind names the registered implementation that is allowed to drive
// the state transitions.
type Condition struct {
	ID            [32]byte `json:"id"`
	Kind          string   `json:"kind"`
	State         State    `json:"state"`
	TimeLock      uint64   `json:"timeLock"`
	TimeOut       uint64   `json:"timeOut"`
	CreatedAt     int64    `json:"createdAt"`
	LastUpdatedBy string   `json:"lastUpdatedBy"`
	LastUpdatedAt int64    `json:"lastUpdatedAt"`
}

// Clone returns a copy of the condition so callers can mutate the copy
// without affecting the stored instance.
func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// fulfillableAt reports the earliest timestamp at which the condition may be
// fulfilled.
func (c *Condition) fulfillableAt() int64 {
	return c.CreatedAt + int64(c.TimeLock)
}

// deadline returns the fulfillment deadline, or zero when no time-out is
// configured.
func (c *Condition) deadline() int64 {
	if c.TimeOut == 0 {
		return 0
	}
	return c.CreatedAt + int64(c.TimeOut)
}
