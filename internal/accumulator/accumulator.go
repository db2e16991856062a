// Package accumulator implements the Fortuna entropy accumulator: a bank of
// 32 independent mixing pools that entropy events are routed into
// round-robin, and from which seed material is drained according to
// Fortuna's pool-selection rule (pool i is drained only every 2^i
// reseeds), bounding how long a set of compromised sources must stay
// compromised to influence a high-numbered pool's contribution to a seed.
package accumulator

import (
	"encoding/binary"
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

// NumPools is the number of independent mixing pools, fixed at 32 per
// Ferguson, Schneier & Kohno's Fortuna design (section 9.5.2): at even ten
// reseeds a second, pool 31 (drained every 2^31 reseeds) would not drain
// for nearly seven years.
const NumPools = 32

// Event is an entropy event as described in spec.md §3: an opaque payload
// paired with a stable fingerprint identifying the source it came from. The
// fingerprint is folded into the pool hash alongside the payload so that
// two sources never produce colliding contributions, but it does not
// influence which pool the event lands in — routing is a single global
// round-robin cursor (§4.2), independent of source identity.
type Event struct {
	SourceFingerprint uint64
	Data              []byte
}

// pool is one incremental hash accumulator. Accumulator holds NumPools of
// these; draining one resets its hash state and counters to fresh-empty.
type pool struct {
	h            hash.Hash
	bytesSince   uint64
	entropySince uint64
}

func newPool() pool {
	return pool{h: sha3.New256()}
}

// add folds an event's fingerprint, length, and payload into the pool hash.
// bytesSince tracks the full wire size written to the hash; entropySince
// tracks only the payload length, which is what the reseed predicates
// compare against their thresholds — a conservative estimate that does not
// credit the envelope bytes as entropy.
func (p *pool) add(event Event) {
	var header [12]byte
	binary.BigEndian.PutUint64(header[0:8], event.SourceFingerprint)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(event.Data)))

	p.h.Write(header[:])
	p.h.Write(event.Data)
	p.bytesSince += uint64(len(header)) + uint64(len(event.Data))
	p.entropySince += uint64(len(event.Data))
}

func (p *pool) drain() []byte {
	digest := p.h.Sum(nil)
	p.h.Reset()
	p.bytesSince = 0
	p.entropySince = 0
	return digest
}

// Accumulator is the Fortuna entropy bank. It is safe for concurrent use:
// every method, NextSeed included, runs under the accumulator's lock, so the
// scheduler worker and the Generator Facade's explicit Reseed may both call
// NextSeed.
type Accumulator struct {
	mu               sync.Mutex
	pools            [NumPools]pool
	nextPoolForEvent uint32
	totalReseedCount uint64
}

// New constructs an Accumulator with all pools in their fresh-empty state.
func New() *Accumulator {
	a := &Accumulator{}
	for i := range a.pools {
		a.pools[i] = newPool()
	}
	return a
}

// Add assigns an entropy event to the current round-robin pool, updates
// that pool's incremental hash and counters, and advances the cursor mod
// NumPools. Add never fails: a source that supplies malformed or hostile
// data simply contributes noise to one pool.
func (a *Accumulator) Add(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.nextPoolForEvent
	a.pools[idx].add(event)
	a.nextPoolForEvent = (a.nextPoolForEvent + 1) % NumPools
}

// NextSeed drains a Fortuna-selected subset of pools and returns the
// concatenation of their digests, having incremented the reseed counter to
// the value k used for selection. Pool i is included iff 2^i divides k, so
// pool 0 is included on every call, pool 1 on every second call, and so on.
// Included pools are reset to empty; excluded pools are left untouched.
func (a *Accumulator) NextSeed() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalReseedCount++
	k := a.totalReseedCount

	var seed []byte
	for i := 0; i < NumPools; i++ {
		if k%(uint64(1)<<uint(i)) != 0 {
			break
		}
		seed = append(seed, a.pools[i].drain()...)
	}
	return seed
}

// TotalReseedEvents returns the monotonically increasing reseed sequence
// number, i.e. the value of k used by the most recent NextSeed call (zero
// before the first call).
func (a *Accumulator) TotalReseedEvents() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalReseedCount
}

// PoolZeroEntropyBytesSinceLastSeed returns pool 0's entropy estimate since
// it was last drained; used by the High-priority reseed predicate.
func (a *Accumulator) PoolZeroEntropyBytesSinceLastSeed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pools[0].entropySince
}

// MinPoolEntropyBytesSinceLastSeed returns the minimum, over all pools, of
// the entropy estimate accumulated since that pool was last drained; used
// by the Normal- and Low-priority reseed predicates so that every pool has
// fresh material before a reseed is allowed.
func (a *Accumulator) MinPoolEntropyBytesSinceLastSeed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	min := a.pools[0].entropySince
	for i := 1; i < NumPools; i++ {
		if a.pools[i].entropySince < min {
			min = a.pools[i].entropySince
		}
	}
	return min
}
