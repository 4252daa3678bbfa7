package settlement

import (
	stderrors "errors"
	"fmt"
	"math/big"
	"sync"

	"settlechain/core/errors"
	"settlechain/core/events"
	"settlechain/core/types"
	"settlechain/native/common"
	"settlechain/native/condition"
	"settlechain/storage"
)

const moduleName = "settlement"

var (
	errNilConditions = stderrors.New("settlement engine: condition store not configured")
	errNilAssets     = stderrors.New("settlement engine: asset registry not configured")
	errNilLedger     = stderrors.New("settlement engine: token ledger not configured")
	errNilVerifier   = stderrors.New("settlement engine: proof verifier not configured")
)

type settlementEvent struct {
	evt *types.Event
}

func (e settlementEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e settlementEvent) Event() *types.Event { return e.evt }

// Engine hosts the condition implementations. Every fulfillment re-derives
// the condition identifier from the submitted arguments, checks the
// domain-specific authorization and asks the condition store for the state
// transition. A single mutex serialises fulfillments so ledger movements and
// their condition transitions observe the one-sequential-ledger model.
type Engine struct {
	mu         sync.Mutex
	conditions *condition.Store
	assets     AssetRegistry
	ledger     TokenLedger
	verifier   ProofVerifier
	db         storage.Database
	emitter    events.Emitter
	pauses     common.PauseView
}

// NewEngine wires the settlement engine with its collaborators. The database
// backs the whitelist condition's membership sets.
func NewEngine(conditions *condition.Store, assets AssetRegistry, ledger TokenLedger, db storage.Database) *Engine {
	return &Engine{
		conditions: conditions,
		assets:     assets,
		ledger:     ledger,
		db:         db,
		emitter:    events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetVerifier configures the proof verification oracle used by the
// proof-gated access condition.
func (e *Engine) SetVerifier(verifier ProofVerifier) { e.verifier = verifier }

// SetPauses configures the operator pause switches.
func (e *Engine) SetPauses(pauses common.PauseView) { e.pauses = pauses }

// SupportsKind reports whether the engine implements the condition kind.
func (e *Engine) SupportsKind(kind string) bool {
	_, ok := kindPolicies[kind]
	return ok
}

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(settlementEvent{evt: evt})
}

func (e *Engine) guard() error {
	if e.conditions == nil {
		return errNilConditions
	}
	return common.Guard(e.pauses, moduleName)
}

// require resolves the condition for a recomputed identifier. An identifier
// that matches no stored condition means the caller's arguments do not
// reproduce the registered parameters.
func (e *Engine) require(id [32]byte) (*condition.Condition, error) {
	cond := e.conditions.Get(id)
	if cond.State == condition.StateUninitialized {
		return nil, fmt.Errorf("%w: no condition matches the submitted arguments (id %x)", errors.ErrNotFound, id)
	}
	return cond, nil
}

// fulfill transitions the condition to Fulfilled, applying the kind's
// timeout policy: under TimeoutAborts a fulfillment attempted past the
// deadline resolves the condition to Aborted instead of failing.
func (e *Engine) fulfill(kind string, id [32]byte) (condition.State, error) {
	if _, err := e.conditions.Transition(kind, id, condition.StateFulfilled); err != nil {
		if stderrors.Is(err, errors.ErrTimedOut) && PolicyFor(kind) == condition.TimeoutAborts {
			if _, aerr := e.conditions.Transition(kind, id, condition.StateAborted); aerr != nil {
				return condition.StateUnfulfilled, aerr
			}
			return condition.StateAborted, nil
		}
		return condition.StateUnfulfilled, err
	}
	return condition.StateFulfilled, nil
}

func sumAmounts(amounts []*big.Int) (*big.Int, error) {
	total := big.NewInt(0)
	for i, amount := range amounts {
		if amount == nil || amount.Sign() <= 0 {
			return nil, fmt.Errorf("settlement: amount at index %d must be positive", i)
		}
		total = new(big.Int).Add(total, amount)
	}
	return total, nil
}
