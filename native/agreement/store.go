package agreement

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"settlechain/core/errors"
	"settlechain/core/events"
	"settlechain/core/types"
	"settlechain/native/condition"
	"settlechain/storage"
)

const keyPrefix = "agreement/"

// TemplateView exposes the template registry checks consumed during
// agreement creation.
type TemplateView interface {
	IsApproved(id string) bool
	ConditionKinds(id string) ([]string, error)
}

// DIDChecker reports whether a DID is known to the asset registry.
type DIDChecker interface {
	Exists(did [32]byte) bool
}

// KindView reports whether a condition kind has a registered implementation.
type KindView interface {
	SupportsKind(kind string) bool
}

// CreateParams carries the full agreement definition. The four condition
// slices are parallel arrays in template order.
type CreateParams struct {
	ID           [32]byte
	DID          [32]byte
	TemplateID   string
	Kinds        []string
	ConditionIDs [][32]byte
	TimeLocks    []uint64
	TimeOuts     []uint64
}

// Store binds agreements to their conditions. Creation is transactional: the
// agreement and every contained condition are registered together or not at
// all.
type Store struct {
	mu         sync.Mutex
	db         storage.Database
	conditions *condition.Store
	templates  TemplateView
	dids       DIDChecker
	kinds      KindView
	emitter    events.Emitter
	nowFn      func() int64
}

// NewStore creates an agreement store. The condition store must have
// delegated creation rights to ModuleName.
func NewStore(db storage.Database, conditions *condition.Store, templates TemplateView, dids DIDChecker) *Store {
	return &Store{
		db:         db,
		conditions: conditions,
		templates:  templates,
		dids:       dids,
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
	}
}

// SetKindView configures the optional condition-kind validator.
func (s *Store) SetKindView(kinds KindView) { s.kinds = kinds }

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (s *Store) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (s *Store) SetNowFunc(now func() int64) {
	if now == nil {
		s.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	s.nowFn = now
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
	s.emitter.Emit(agreementEvent{evt: evt})
}

func agreementKey(id [32]byte) []byte {
	return []byte(keyPrefix + hex.EncodeToString(id[:]))
}

func (s *Store) load(id [32]byte) (*Agreement, bool, error) {
	raw, err := s.db.Get(agreementKey(id))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	ag := &Agreement{}
	if err := json.Unmarshal(raw, ag); err != nil {
		return nil, false, fmt.Errorf("agreement store: decode %x: %w", id, err)
	}
	return ag, true, nil
}

func (s *Store) validate(params CreateParams) error {
	if params.ID == ([32]byte{}) {
		return fmt.Errorf("agreement store: empty agreement id")
	}
	n := len(params.Kinds)
	if n == 0 {
		return fmt.Errorf("agreement store: agreement needs at least one condition")
	}
	if len(params.ConditionIDs) != n || len(params.TimeLocks) != n || len(params.TimeOuts) != n {
		return fmt.Errorf("agreement store: condition arrays must have matching lengths")
	}
	if s.templates == nil || !s.templates.IsApproved(params.TemplateID) {
		return fmt.Errorf("%w: template %s", errors.ErrTemplateNotApproved, params.TemplateID)
	}
	blueprint, err := s.templates.ConditionKinds(params.TemplateID)
	if err != nil {
		return err
	}
	if len(blueprint) != n {
		return fmt.Errorf("%w: template %s expects %d conditions, got %d", errors.ErrTemplateNotApproved, params.TemplateID, len(blueprint), n)
	}
	for i, kind := range blueprint {
		if params.Kinds[i] != kind {
			return fmt.Errorf("%w: condition %d must be %s, got %s", errors.ErrTemplateNotApproved, i, kind, params.Kinds[i])
		}
	}
	if s.kinds != nil {
		for _, kind := range params.Kinds {
			if !s.kinds.SupportsKind(kind) {
				return fmt.Errorf("agreement store: unknown condition kind %s", kind)
			}
		}
	}
	if s.dids == nil || !s.dids.Exists(params.DID) {
		return fmt.Errorf("%w: did %x", errors.ErrDIDNotRegistered, params.DID)
	}
	return nil
}

// Create registers the agreement and all of its conditions. Any failing
// check, including a colliding condition id, leaves no state behind.
func (s *Store) Create(creator [20]byte, params CreateParams) (*Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validate(params); err != nil {
		return nil, err
	}
	if _, ok, err := s.load(params.ID); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: agreement %x", errors.ErrAlreadyExists, params.ID)
	}
	specs := make([]condition.CreateSpec, len(params.ConditionIDs))
	for i := range params.ConditionIDs {
		specs[i] = condition.CreateSpec{
			ID:       params.ConditionIDs[i],
			Kind:     params.Kinds[i],
			TimeLock: params.TimeLocks[i],
			TimeOut:  params.TimeOuts[i],
		}
	}
	if err := s.conditions.CreateBatch(ModuleName, specs); err != nil {
		return nil, err
	}
	ag := &Agreement{
		ID:           params.ID,
		DID:          params.DID,
		TemplateID:   params.TemplateID,
		ConditionIDs: append([][32]byte(nil), params.ConditionIDs...),
		CreatedBy:    creator,
		CreatedAt:    s.now(),
	}
	raw, err := json.Marshal(ag)
	if err != nil {
		return nil, fmt.Errorf("agreement store: encode %x: %w", ag.ID, err)
	}
	if err := s.db.Put(agreementKey(ag.ID), raw); err != nil {
		return nil, err
	}
	s.emit(NewCreatedEvent(ag))
	return ag.Clone(), nil
}

// Get returns the agreement for the given id.
func (s *Store) Get(id [32]byte) (*Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ag, ok, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: agreement %x", errors.ErrNotFound, id)
	}
	return ag.Clone(), nil
}
