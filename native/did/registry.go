package did

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"settlechain/core/errors"
	"settlechain/storage"
)

const keyPrefix = "did/"

// Asset records the ownership and royalty policy of a registered DID. The
// attribute payload of the wider registry is out of scope here; the
// settlement engine only consumes ownership, provider and royalty data.
type Asset struct {
	DID          [32]byte   `json:"did"`
	Owner        [20]byte   `json:"owner"`
	Providers    [][20]byte `json:"providers"`
	RoyaltyBps   uint32     `json:"royaltyBps"`
	Beneficiary  [20]byte   `json:"beneficiary"`
	RegisteredAt int64      `json:"registeredAt"`
}

// Clone returns a copy of the asset record.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Providers = append([][20]byte(nil), a.Providers...)
	return &clone
}

// Registry is the minimal DID registry collaborator used by the settlement
// engine and the daemon.
type Registry struct {
	mu    sync.Mutex
	db    storage.Database
	nowFn func() int64
}

// NewRegistry creates a DID registry backed by the supplied database.
func NewRegistry(db storage.Database) *Registry {
	return &Registry{
		db:    db,
		nowFn: func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source, primarily used in tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func didKey(did [32]byte) []byte {
	return []byte(keyPrefix + hex.EncodeToString(did[:]))
}

func (r *Registry) load(did [32]byte) (*Asset, bool, error) {
	raw, err := r.db.Get(didKey(did))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	asset := &Asset{}
	if err := json.Unmarshal(raw, asset); err != nil {
		return nil, false, fmt.Errorf("did registry: decode %x: %w", did, err)
	}
	return asset, true, nil
}

func (r *Registry) persist(asset *Asset) error {
	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("did registry: encode %x: %w", asset.DID, err)
	}
	return r.db.Put(didKey(asset.DID), raw)
}

// Register records a new DID with its owner and royalty policy. A royalty of
// royaltyBps basis points of every locked payment must flow to the
// beneficiary.
func (r *Registry) Register(owner [20]byte, didID [32]byte, royaltyBps uint32, beneficiary [20]byte) (*Asset, error) {
	if didID == ([32]byte{}) {
		return nil, fmt.Errorf("did registry: empty did")
	}
	if royaltyBps > 10_000 {
		return nil, fmt.Errorf("did registry: royalty bps out of range")
	}
	if royaltyBps > 0 && beneficiary == ([20]byte{}) {
		return nil, fmt.Errorf("did registry: royalty beneficiary required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok, err := r.load(didID); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: did %x", errors.ErrAlreadyExists, didID)
	}
	asset := &Asset{
		DID:          didID,
		Owner:        owner,
		RoyaltyBps:   royaltyBps,
		Beneficiary:  beneficiary,
		RegisteredAt: r.nowFn(),
	}
	if err := r.persist(asset); err != nil {
		return nil, err
	}
	return asset.Clone(), nil
}

// AddProvider authorizes an additional service provider for the DID. Owner
// only.
func (r *Registry) AddProvider(caller [20]byte, didID [32]byte, provider [20]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok, err := r.load(didID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: did %x", errors.ErrDIDNotRegistered, didID)
	}
	if caller != asset.Owner {
		return fmt.Errorf("%w: only the did owner may add providers", errors.ErrUnauthorized)
	}
	for _, existing := range asset.Providers {
		if existing == provider {
			return nil
		}
	}
	asset.Providers = append(asset.Providers, provider)
	return r.persist(asset)
}

// Get returns the registered asset for the DID.
func (r *Registry) Get(didID [32]byte) (*Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok, err := r.load(didID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: did %x", errors.ErrDIDNotRegistered, didID)
	}
	return asset.Clone(), nil
}

// Exists reports whether the DID is registered.
func (r *Registry) Exists(didID [32]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok, err := r.load(didID)
	return err == nil && ok
}

// Owner returns the current owner of the DID.
func (r *Registry) Owner(didID [32]byte) ([20]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok, err := r.load(didID)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, fmt.Errorf("%w: did %x", errors.ErrDIDNotRegistered, didID)
	}
	return asset.Owner, nil
}

// IsProvider reports whether the address is an authorized provider for the
// DID.
func (r *Registry) IsProvider(didID [32]byte, addr [20]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok, err := r.load(didID)
	if err != nil || !ok {
		return false
	}
	for _, provider := range asset.Providers {
		if provider == addr {
			return true
		}
	}
	return false
}

// Transfer moves DID ownership from the current owner to the new owner.
func (r *Registry) Transfer(didID [32]byte, from, to [20]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok, err := r.load(didID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: did %x", errors.ErrDIDNotRegistered, didID)
	}
	if asset.Owner != from {
		return fmt.Errorf("%w: %x does not own did %x", errors.ErrUnauthorized, from, didID)
	}
	asset.Owner = to
	return r.persist(asset)
}

// CheckRoyalties verifies that the proposed payment split satisfies the
// royalty policy of the DID: the beneficiary must receive at least
// royaltyBps of the total locked amount.
func (r *Registry) CheckRoyalties(didID [32]byte, receivers [][20]byte, amounts []*big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok, err := r.load(didID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: did %x", errors.ErrDIDNotRegistered, didID)
	}
	if asset.RoyaltyBps == 0 {
		return nil
	}
	if len(receivers) != len(amounts) {
		return fmt.Errorf("did registry: receivers and amounts length mismatch")
	}
	total := big.NewInt(0)
	beneficiaryShare := big.NewInt(0)
	for i, amount := range amounts {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("did registry: invalid amount at index %d", i)
		}
		total = new(big.Int).Add(total, amount)
		if receivers[i] == asset.Beneficiary {
			beneficiaryShare = new(big.Int).Add(beneficiaryShare, amount)
		}
	}
	required := new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(asset.RoyaltyBps)))
	required.Div(required, big.NewInt(10_000))
	if beneficiaryShare.Cmp(required) < 0 {
		return fmt.Errorf("royalties are not satisfied: beneficiary share %s below required %s", beneficiaryShare, required)
	}
	return nil
}
