package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/roach88/strata/internal/value"
)

// DeterministicIDs hands out ObjectIDs and UUIDs from a counter, so golden
// output does not depend on time or randomness.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicIDs struct {
	mu  sync.Mutex
	seq uint64
}

// NewDeterministicIDs creates a generator starting at 0.
//
// The first generated ID encodes 1.
func NewDeterministicIDs() *DeterministicIDs {
	return &DeterministicIDs{}
}

func (g *DeterministicIDs) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return g.seq
}

// ObjectID returns the next ObjectID. The counter is stored big-endian in
// the last eight bytes.
func (g *DeterministicIDs) ObjectID() value.ObjectID {
	var id value.ObjectID
	binary.BigEndian.PutUint64(id[4:], g.next())
	return id
}

// UUID returns the next UUID, version 4 layout with the counter in the low
// eight bytes.
func (g *DeterministicIDs) UUID() value.UUID {
	var id value.UUID
	id[6] = 0x40
	id[8] = 0x80
	binary.BigEndian.PutUint64(id[8:], g.next()|0x8000000000000000)
	return id
}

// Current returns the last counter value handed out.
func (g *DeterministicIDs) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the counter. After Reset, the next ID encodes 1.
func (g *DeterministicIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
