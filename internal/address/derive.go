package address

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var pdaMarker = []byte("ProgramDerivedAddress")

var (
	ErrOwnerRequired     = errors.New("address: capability requires an owner identity")
	ErrUnknownCapability = errors.New("address: unknown capability")
	ErrNoViableBump      = errors.New("address: unable to find a viable program address bump seed")
	ErrAddressOnCurve    = errors.New("address: derived address lies on the ed25519 curve")
)

// CreateProgramAddress hashes seeds with the program id. The result must lie
// off the curve so that no private key can sign for it.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("address: too many seeds (%d > %d)", len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("address: seed too long (%d > %d)", len(s), MaxSeedLength)
		}
		h.Write(s)
	}
	h.Write(program[:])
	h.Write(pdaMarker)

	var out PublicKey
	copy(out[:], h.Sum(nil))
	if IsOnCurve(out[:]) {
		return PublicKey{}, ErrAddressOnCurve
	}
	return out, nil
}

// FindProgramAddress searches bump seeds from 255 downward and returns the
// first off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrAddressOnCurve) {
			return PublicKey{}, 0, err
		}
	}
	return PublicKey{}, 0, ErrNoViableBump
}

// Capability selects which per-entity ledger record an address points at.
type Capability int

const (
	Treasury Capability = iota
	Profile
	BonusAsset
)

var capabilitySeeds = map[Capability][]byte{
	Treasury:   []byte("scratch_treasury"),
	Profile:    []byte("scratch_profile"),
	BonusAsset: []byte("scratch_nft"),
}

func (c Capability) String() string {
	switch c {
	case Treasury:
		return "treasury"
	case Profile:
		return "profile"
	case BonusAsset:
		return "bonus_asset"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

func (c Capability) requiresOwner() bool {
	return c != Treasury
}

type derivedKey struct {
	tag   Capability
	owner PublicKey
}

type Derived struct {
	Address PublicKey
	Bump    uint8
}

// Deriver maps (capability, owner) to the program-derived address of the
// matching ledger record. Results are memoized; the mapping is pure.
type Deriver struct {
	program PublicKey

	mu    sync.RWMutex
	cache map[derivedKey]Derived
}

func NewDeriver(program PublicKey) *Deriver {
	return &Deriver{
		program: program,
		cache:   make(map[derivedKey]Derived),
	}
}

func (d *Deriver) ProgramID() PublicKey {
	return d.program
}

// Derive returns the address for tag. Profile and BonusAsset require owner;
// Treasury ignores it.
func (d *Deriver) Derive(tag Capability, owner *PublicKey) (Derived, error) {
	prefix, ok := capabilitySeeds[tag]
	if !ok {
		return Derived{}, ErrUnknownCapability
	}

	key := derivedKey{tag: tag}
	seeds := [][]byte{prefix}
	if tag.requiresOwner() {
		if owner == nil {
			return Derived{}, fmt.Errorf("%w: %s", ErrOwnerRequired, tag)
		}
		key.owner = *owner
		seeds = append(seeds, owner[:])
	}

	d.mu.RLock()
	cached, hit := d.cache[key]
	d.mu.RUnlock()
	if hit {
		return cached, nil
	}

	addr, bump, err := FindProgramAddress(seeds, d.program)
	if err != nil {
		return Derived{}, err
	}
	out := Derived{Address: addr, Bump: bump}

	d.mu.Lock()
	d.cache[key] = out
	d.mu.Unlock()
	return out, nil
}

func (d *Deriver) TreasuryAddress() PublicKey {
	return d.mustDerive(Treasury, nil)
}

func (d *Deriver) ProfileAddress(owner PublicKey) PublicKey {
	return d.mustDerive(Profile, &owner)
}

func (d *Deriver) BonusAssetAddress(owner PublicKey) PublicKey {
	return d.mustDerive(BonusAsset, &owner)
}

// mustDerive panics only on programming errors: every capability is known and
// owners are always supplied by the typed helpers above.
func (d *Deriver) mustDerive(tag Capability, owner *PublicKey) PublicKey {
	derived, err := d.Derive(tag, owner)
	if err != nil {
		panic(err)
	}
	return derived.Address
}
