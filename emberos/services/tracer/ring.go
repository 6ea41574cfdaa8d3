package tracer

import (
	"sync/atomic"

	"ember/emberos/proto"
)

const ringSlots = 64

// Ring is a fixed-size single-producer, single-consumer queue of trace
// records. The producer never blocks, so it can be fed from interrupt
// context. Kernel events are emitted by whatever holds the core, so there is
// only ever one producer at a time.
type Ring struct {
	_     [0]func() // prevent accidental copying.
	head  atomic.Uint32
	tail  atomic.Uint32
	slots [ringSlots]proto.TraceRecord
}

// TryPut enqueues a record, returning false if the ring is full.
func (r *Ring) TryPut(rec proto.TraceRecord) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= ringSlots {
		return false
	}

	// Publish the slot only after it is written.
	r.slots[head%ringSlots] = rec
	r.head.Store(head + 1)
	return true
}

// TryGet attempts to dequeue one record, returning false if empty.
func (r *Ring) TryGet() (proto.TraceRecord, bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		return proto.TraceRecord{}, false
	}

	rec := r.slots[tail%ringSlots]
	r.tail.Store(tail + 1)
	return rec, true
}

// Len returns the number of queued records.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}
