package agreement

import (
	"errors"
	"testing"

	coreerrors "settlechain/core/errors"
	"settlechain/native/condition"
	"settlechain/storage"
)

type fakeTemplates struct {
	approved map[string][]string
}

func (f fakeTemplates) IsApproved(id string) bool {
	_, ok := f.approved[id]
	return ok
}

func (f fakeTemplates) ConditionKinds(id string) ([]string, error) {
	kinds, ok := f.approved[id]
	if !ok {
		return nil, errors.New("unknown template")
	}
	return kinds, nil
}

type fakeDIDs struct {
	known map[[32]byte]struct{}
}

func (f fakeDIDs) Exists(did [32]byte) bool {
	_, ok := f.known[did]
	return ok
}

type fakeKinds struct{}

func (fakeKinds) SupportsKind(kind string) bool {
	return kind == "access" || kind == "lock.payment" || kind == "escrow.payment"
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[0] = b
	return out
}

func hash(b byte) [32]byte {
	var out [32]byte
	out[0] = b
	return out
}

type fixture struct {
	store      *Store
	conditions *condition.Store
	dids       fakeDIDs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	conditions := condition.NewStore(db)
	conditions.Delegate(ModuleName)
	conditions.SetNowFunc(func() int64 { return 100 })
	templates := fakeTemplates{approved: map[string][]string{
		"sales": {"lock.payment", "access"},
	}}
	dids := fakeDIDs{known: map[[32]byte]struct{}{hash(200): {}}}
	store := NewStore(db, conditions, templates, dids)
	store.SetKindView(fakeKinds{})
	store.SetNowFunc(func() int64 { return 100 })
	return &fixture{store: store, conditions: conditions, dids: dids}
}

func validParams() CreateParams {
	return CreateParams{
		ID:           hash(1),
		DID:          hash(200),
		TemplateID:   "sales",
		Kinds:        []string{"lock.payment", "access"},
		ConditionIDs: [][32]byte{hash(10), hash(11)},
		TimeLocks:    []uint64{0, 0},
		TimeOuts:     []uint64{0, 3600},
	}
}

func TestCreateRegistersConditions(t *testing.T) {
	fx := newFixture(t)
	ag, err := fx.store.Create(addr(1), validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(ag.ConditionIDs) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(ag.ConditionIDs))
	}
	for _, id := range ag.ConditionIDs {
		if got := fx.conditions.GetState(id); got != condition.StateUnfulfilled {
			t.Fatalf("condition %x: expected unfulfilled, got %s", id, got)
		}
	}
	stored, err := fx.store.Get(hash(1))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.TemplateID != "sales" {
		t.Fatalf("template id mismatch")
	}
}

func TestCreateRejectsDuplicateAgreement(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.store.Create(addr(1), validParams()); err != nil {
		t.Fatalf("create: %v", err)
	}
	params := validParams()
	params.ConditionIDs = [][32]byte{hash(20), hash(21)}
	if _, err := fx.store.Create(addr(1), params); !errors.Is(err, coreerrors.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateRequiresApprovedTemplate(t *testing.T) {
	fx := newFixture(t)
	params := validParams()
	params.TemplateID = "unknown"
	if _, err := fx.store.Create(addr(1), params); !errors.Is(err, coreerrors.ErrTemplateNotApproved) {
		t.Fatalf("expected ErrTemplateNotApproved, got %v", err)
	}
}

func TestCreateEnforcesBlueprintOrder(t *testing.T) {
	fx := newFixture(t)
	params := validParams()
	params.Kinds = []string{"access", "lock.payment"}
	if _, err := fx.store.Create(addr(1), params); !errors.Is(err, coreerrors.ErrTemplateNotApproved) {
		t.Fatalf("expected ErrTemplateNotApproved, got %v", err)
	}
}

func TestCreateRequiresRegisteredDID(t *testing.T) {
	fx := newFixture(t)
	params := validParams()
	params.DID = hash(201)
	if _, err := fx.store.Create(addr(1), params); !errors.Is(err, coreerrors.ErrDIDNotRegistered) {
		t.Fatalf("expected ErrDIDNotRegistered, got %v", err)
	}
}

func TestCreateLeavesNoStateOnConditionCollision(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.conditions.Create(ModuleName, condition.CreateSpec{ID: hash(11), Kind: "access"}); err != nil {
		t.Fatalf("seed condition: %v", err)
	}
	if _, err := fx.store.Create(addr(1), validParams()); !errors.Is(err, coreerrors.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got := fx.conditions.GetState(hash(10)); got != condition.StateUninitialized {
		t.Fatalf("partial condition write survived: %s", got)
	}
	if _, err := fx.store.Get(hash(1)); !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("expected no agreement record, got %v", err)
	}
}

func TestDeriveIDBindsCreator(t *testing.T) {
	seed := hash(5)
	if DeriveID(seed, addr(1)) == DeriveID(seed, addr(2)) {
		t.Fatalf("creator does not influence the agreement id")
	}
	if DeriveID(seed, addr(1)) != DeriveID(seed, addr(1)) {
		t.Fatalf("derivation is not deterministic")
	}
}
