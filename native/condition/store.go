package condition

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"settlechain/core/errors"
	"settlechain/core/events"
	"settlechain/core/types"
	"settlechain/storage"
)

const keyPrefix = "condition/"

// Store is the authoritative state machine for individual conditions. Only
// delegated creators (the agreement store) may register new conditions, and
// only the implementation named by a condition's Kind may transition it.
type Store struct {
	mu       sync.Mutex
	db       storage.Database
	emitter  events.Emitter
	nowFn    func() int64
	creators map[string]struct{}
}

// CreateSpec describes one condition to register.
type CreateSpec struct {
	ID       [32]byte
	Kind     string
	TimeLock uint64
	TimeOut  uint64
}

// NewStore creates a condition store backed by the supplied database.
func NewStore(db storage.Database) *Store {
	return &Store{
		db:       db,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		creators: make(map[string]struct{}),
	}
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc overrides the time source used by the store. Primarily intended
// for tests to provide deterministic timestamps.
func (s *Store) SetNowFunc(now func() int64) {
	if now == nil {
		s.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	s.nowFn = now
}

// Delegate grants condition creation rights to the named module.
func (s *Store) Delegate(name string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[trimmed] = struct{}{}
}

func (s *Store) now() int64 {
	if s.nowFn == nil {
		return time.Now().Unix()
	}
	return s.nowFn()
}

func (s *Store) emit(evt *types.Event) {
	if s.emitter == nil || evt == nil {
		return
	}
	s.emitter.Emit(conditionEvent{evt: evt})
}

func conditionKey(id [32]byte) []byte {
	return []byte(keyPrefix + hex.EncodeToString(id[:]))
}

func (s *Store) load(id [32]byte) (*Condition, bool, error) {
	raw, err := s.db.Get(conditionKey(id))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	cond := &Condition{}
	if err := json.Unmarshal(raw, cond); err != nil {
		return nil, false, fmt.Errorf("condition store: decode %x: %w", id, err)
	}
	return cond, true, nil
}

func (s *Store) persist(cond *Condition) error {
	raw, err := json.Marshal(cond)
	if err != nil {
		return fmt.Errorf("condition store: encode %x: %w", cond.ID, err)
	}
	return s.db.Put(conditionKey(cond.ID), raw)
}

func (s *Store) validateSpec(spec CreateSpec) error {
	if strings.TrimSpace(spec.Kind) == "" {
		return fmt.Errorf("condition store: empty condition kind")
	}
	if spec.ID == ([32]byte{}) {
		return fmt.Errorf("condition store: empty condition id")
	}
	return nil
}

// Create registers a single condition with state Unfulfilled. The caller must
// hold creation delegation.
func (s *Store) Create(caller string, spec CreateSpec) (*Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conds, err := s.createLocked(caller, []CreateSpec{spec})
	if err != nil {
		return nil, err
	}
	return conds[0], nil
}

// CreateBatch registers all supplied conditions or none of them: every spec
// is validated against the store and against the rest of the batch before the
// first write.
func (s *Store) CreateBatch(caller string, specs []CreateSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.createLocked(caller, specs)
	return err
}

func (s *Store) createLocked(caller string, specs []CreateSpec) ([]*Condition, error) {
	if _, ok := s.creators[caller]; !ok {
		return nil, fmt.Errorf("%w: %q may not create conditions", errors.ErrUnauthorized, caller)
	}
	seen := make(map[[32]byte]struct{}, len(specs))
	for _, spec := range specs {
		if err := s.validateSpec(spec); err != nil {
			return nil, err
		}
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("%w: condition %x repeated in batch", errors.ErrAlreadyExists, spec.ID)
		}
		seen[spec.ID] = struct{}{}
		exists, err := s.db.Has(conditionKey(spec.ID))
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: condition %x", errors.ErrAlreadyExists, spec.ID)
		}
	}
	now := s.now()
	created := make([]*Condition, 0, len(specs))
	for _, spec := range specs {
		cond := &Condition{
			ID:            spec.ID,
			Kind:          spec.Kind,
			State:         StateUnfulfilled,
			TimeLock:      spec.TimeLock,
			TimeOut:       spec.TimeOut,
			CreatedAt:     now,
			LastUpdatedBy: caller,
			LastUpdatedAt: now,
		}
		if err := s.persist(cond); err != nil {
			return nil, err
		}
		created = append(created, cond)
	}
	for _, cond := range created {
		s.emit(NewCreatedEvent(cond))
	}
	out := make([]*Condition, len(created))
	for i, cond := range created {
		out[i] = cond.Clone()
	}
	return out, nil
}

func (s *Store) checkTransition(cond *Condition, caller string, next State, now int64) error {
	if cond == nil || cond.State == StateUninitialized {
		return fmt.Errorf("%w: condition does not exist", errors.ErrNotFound)
	}
	if caller != cond.Kind {
		return fmt.Errorf("%w: %q may not transition %s condition", errors.ErrUnauthorized, caller, cond.Kind)
	}
	if cond.State != StateUnfulfilled {
		return fmt.Errorf("%w: condition %x is %s", errors.ErrInvalidTransition, cond.ID, cond.State)
	}
	switch next {
	case StateFulfilled:
		if now < cond.fulfillableAt() {
			return fmt.Errorf("%w: fulfillable at %d, now %d", errors.ErrTimeLocked, cond.fulfillableAt(), now)
		}
		if deadline := cond.deadline(); deadline != 0 && now > deadline {
			return fmt.Errorf("%w: deadline %d, now %d", errors.ErrTimedOut, deadline, now)
		}
	case StateAborted:
		deadline := cond.deadline()
		if deadline == 0 || now <= deadline {
			return fmt.Errorf("%w: condition %x may only abort after its deadline", errors.ErrInvalidTransition, cond.ID)
		}
	default:
		return fmt.Errorf("%w: cannot transition to %s", errors.ErrInvalidTransition, next)
	}
	return nil
}

// Validate performs every transition check without mutating state. Condition
// implementations call this before moving external funds so a failing
// transition never leaves a partial state change behind.
func (s *Store) Validate(caller string, id [32]byte, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cond, _, err := s.load(id)
	if err != nil {
		return err
	}
	return s.checkTransition(cond, caller, next, s.now())
}

// Transition moves an Unfulfilled condition to Fulfilled or Aborted.
// Fulfilled is gated on the time window; Aborted is only legal once the
// deadline has elapsed.
func (s *Store) Transition(caller string, id [32]byte, next State) (*Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cond, _, err := s.load(id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.checkTransition(cond, caller, next, now); err != nil {
		return nil, err
	}
	cond.State = next
	cond.LastUpdatedBy = caller
	cond.LastUpdatedAt = now
	if err := s.persist(cond); err != nil {
		return nil, err
	}
	switch next {
	case StateFulfilled:
		s.emit(NewFulfilledEvent(cond))
	case StateAborted:
		s.emit(NewAbortedEvent(cond))
	}
	return cond.Clone(), nil
}

// Get returns the condition record for the given id. Unknown identifiers
// yield a zero-value record in state Uninitialized rather than an error.
func (s *Store) Get(id [32]byte) *Condition {
	s.mu.Lock()
	defer s.mu.Unlock()
	cond, ok, err := s.load(id)
	if err != nil || !ok {
		return &Condition{ID: id, State: StateUninitialized}
	}
	return cond.Clone()
}

// GetState returns the current state for the given id, Uninitialized when
// unknown.
func (s *Store) GetState(id [32]byte) State {
	return s.Get(id).State
}
