package wirebus

import (
	"sync/atomic"
	"time"
)

// seqBits is the number of low bits reserved for the per-millisecond sequence.
const seqBits = 20

// seqMask extracts the sequence portion of an ID.
const seqMask = (1 << seqBits) - 1

// IDGenerator mints event IDs of the form
//
//	(timestamp_ms << 20) | (counter & 0xFFFFF)
//
// IDs are unique within the owning process: two events minted in the same
// millisecond differ in the low 20 bits. The sequence wraps after 2^20 IDs in
// a single millisecond, which is an accepted limitation. IDs are not globally
// unique across processes.
//
// The generator is an explicitly owned value rather than package state so it
// can be scoped, replaced, and tested with a fake clock.
type IDGenerator struct {
	counter atomic.Uint64
	now     func() time.Time
}

// NewIDGenerator creates a generator backed by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock creates a generator with an injected clock.
// Intended for tests that need deterministic timestamps.
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns the next ID.
func (g *IDGenerator) Next() uint64 {
	ts := uint64(g.now().UnixMilli())
	seq := g.counter.Add(1) - 1
	return ts<<seqBits | seq&seqMask
}

// Timestamp returns the current time in Unix milliseconds from the
// generator's clock.
func (g *IDGenerator) Timestamp() uint64 {
	return uint64(g.now().UnixMilli())
}
