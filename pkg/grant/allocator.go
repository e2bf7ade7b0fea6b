package grant

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash"
)

// Signature is a fingerprint of one access policy configuration: the
// restricted terms attached to an item together with their allowed
// user and role sets; items with equal signatures share a grant bucket
type Signature uint64

// NewSignature fingerprints a policy configuration; inputs must be
// pre-sorted so that equal configurations always hash identically
func NewSignature(termIDs []int64, userIDs, roleIDs map[int64][]int64) Signature {
	h := xxhash.New()
	buf := make([]byte, 8)

	write := func(marker byte, v int64) {
		// markers keep (term, user, role) id streams from colliding
		h.Write([]byte{marker})
		binary.BigEndian.PutUint64(buf, uint64(v))
		h.Write(buf)
	}

	for _, termID := range termIDs {
		write('t', termID)

		for _, id := range userIDs[termID] {
			write('u', id)
		}

		for _, id := range roleIDs[termID] {
			write('r', id)
		}
	}

	return Signature(h.Sum64())
}

// Allocator hands out grant bucket ids for one maintenance pass: an
// equivalent configuration reuses its existing gid, a new configuration
// gets the next monotonic gid; the allocator is arena-style state that
// is discarded when the pass ends
// NOTE: concurrent maintenance passes are not supported, the caller
// serializes them; the mutex only guards against accidental sharing
type Allocator struct {
	next   uint32
	bySig  map[Signature]uint32
	sync.Mutex
}

// NewAllocator returns an allocator that will never hand out a gid
// below the given seed, anchoring process-wide monotonicity to the
// highest gid already present in the store
func NewAllocator(seed uint32) *Allocator {
	return &Allocator{
		next:  seed + 1,
		bySig: make(map[Signature]uint32),
	}
}

// GidFor returns the gid for a configuration, allocating when unseen
func (a *Allocator) GidFor(sig Signature) uint32 {
	a.Lock()
	defer a.Unlock()

	if gid, ok := a.bySig[sig]; ok {
		return gid
	}

	gid := a.next
	a.next++
	a.bySig[sig] = gid

	return gid
}

// Adopt pre-binds a configuration to an already-stored gid so that a
// recompute of an unchanged item reproduces its existing records
// bit-identically; the first binding for a signature wins
func (a *Allocator) Adopt(sig Signature, gid uint32) {
	a.Lock()
	defer a.Unlock()

	if _, ok := a.bySig[sig]; ok {
		return
	}

	a.bySig[sig] = gid

	if gid >= a.next {
		a.next = gid + 1
	}
}
