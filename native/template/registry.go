package template

import (
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

const keyPrefix = "template/"

// State tracks the approval lifecycle of an agreement blueprint.
type State uint8

const (
	StateUninitialized State = iota
	StateProposed
	StateApproved
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProposed:
		return "proposed"
	case StateApproved:
		return "approved"
	case StateRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Template is an ordered condition-kind list that, once approved by the
// registry owner, may originate new agreements.
type Template struct {
	ID             string   `json:"id"`
	ConditionKinds []string `json:"conditionKinds"`
	Proposer       [20]byte `json:"proposer"`
	State          State    `json:"state"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// Clone returns a copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	clone := *t
	clone.ConditionKinds = append([]string(nil), t.ConditionKinds...)
	return &clone
}

// Registry stores templates and enforces the owner-gated approval flow.
type Registry struct {
	mu      sync.Mutex
	db      storage.Database
	owner   [20]byte
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry creates a template registry. Approve and Revoke are restricted
// to the supplied owner address.
func NewRegistry(db storage.Database, owner [20]byte) *Registry {
	return &Registry{
		db:      db,
		owner:   owner,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source, primarily used in tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() int64 {
	if r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}

func (r *Registry) emit(evt *types.Event) {
	if r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(templateEvent{evt: evt})
}

func templateKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func (r *Registry) load(id string) (*Template, bool, error) {
	raw, err := r.db.Get(templateKey(id))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	tpl := &Template{}
	if err := json.Unmarshal(raw, tpl); err != nil {
		return nil, false, fmt.Errorf("template registry: decode %s: %w", id, err)
	}
	return tpl, true, nil
}

func (r *Registry) persist(tpl *Template) error {
	raw, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("template registry: encode %s: %w", tpl.ID, err)
	}
	return r.db.Put(templateKey(tpl.ID), raw)
}

// Propose registers a new blueprint in state Proposed. Anyone may propose;
// only the owner can approve.
func (r *Registry) Propose(caller [20]byte, id string, conditionKinds []string) (*Template, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, fmt.Errorf("template registry: empty template id")
	}
	if len(conditionKinds) == 0 {
		return nil, fmt.Errorf("template registry: template needs at least one condition kind")
	}
	kinds := make([]string, len(conditionKinds))
	for i, kind := range conditionKinds {
		kinds[i] = strings.TrimSpace(kind)
		if kinds[i] == "" {
			return nil, fmt.Errorf("template registry: empty condition kind at index %d", i)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok, err := r.load(trimmed); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: template %s", errors.ErrAlreadyExists, trimmed)
	}
	tpl := &Template{
		ID:             trimmed,
		ConditionKinds: kinds,
		Proposer:       caller,
		State:          StateProposed,
		UpdatedAt:      r.now(),
	}
	if err := r.persist(tpl); err != nil {
		return nil, err
	}
	r.emit(NewProposedEvent(tpl))
	return tpl.Clone(), nil
}

// Approve moves a proposed template to Approved. Owner only.
func (r *Registry) Approve(caller [20]byte, id string) error {
	return r.transition(caller, id, StateApproved)
}

// Revoke moves a proposed or approved template to Revoked. Owner only.
func (r *Registry) Revoke(caller [20]byte, id string) error {
	return r.transition(caller, id, StateRevoked)
}

func (r *Registry) transition(caller [20]byte, id string, next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return fmt.Errorf("%w: only the registry owner may change template state", errors.ErrUnauthorized)
	}
	tpl, ok, err := r.load(strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: template %s", errors.ErrNotFound, id)
	}
	switch next {
	case StateApproved:
		if tpl.State != StateProposed {
			return fmt.Errorf("%w: cannot approve %s template", errors.ErrInvalidTransition, tpl.State)
		}
	case StateRevoked:
		if tpl.State != StateProposed && tpl.State != StateApproved {
			return fmt.Errorf("%w: cannot revoke %s template", errors.ErrInvalidTransition, tpl.State)
		}
	default:
		return fmt.Errorf("%w: template cannot move to %s", errors.ErrInvalidTransition, next)
	}
	tpl.State = next
	tpl.UpdatedAt = r.now()
	if err := r.persist(tpl); err != nil {
		return err
	}
	switch next {
	case StateApproved:
		r.emit(NewApprovedEvent(tpl))
	case StateRevoked:
		r.emit(NewRevokedEvent(tpl))
	}
	return nil
}

// Get returns the template for the given id.
func (r *Registry) Get(id string) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok, err := r.load(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: template %s", errors.ErrNotFound, id)
	}
	return tpl.Clone(), nil
}

// IsApproved reports whether the template exists and is approved.
func (r *Registry) IsApproved(id string) bool {
	tpl, err := r.Get(id)
	if err != nil {
		return false
	}
	return tpl.State == StateApproved
}

// ConditionKinds returns the ordered condition-kind list of the template.
func (r *Registry) ConditionKinds(id string) ([]string, error) {
	tpl, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return tpl.ConditionKinds, nil
}
