// Package tracer streams kernel events to a byte sink as CRC-protected
// frames. Events are queued from whatever context the kernel is in and
// written out by a low-priority task.
package tracer

import (
	"io"
	"sync/atomic"

	"ember/emberos/proto"
	"ember/kernel"
)

// DefaultPeriod is how often, in ticks, the drain task wakes up.
const DefaultPeriod = 10

type Service struct {
	ring    Ring
	out     io.Writer
	seq     uint16
	dropped atomic.Uint32
	written atomic.Uint32
	buf     []byte

	k      *kernel.Kernel
	tcb    kernel.TCB
	period uint32
}

// New returns a tracer writing frames to out.
func New(out io.Writer) *Service {
	return &Service{out: out, buf: make([]byte, 0, ringSlots*proto.TraceFrameSize)}
}

// Trace queues one event. It never blocks; when the ring is full the event
// is counted as dropped, and the gap shows up in the frame sequence numbers.
func (s *Service) Trace(ev kernel.Event) {
	rec := proto.TraceRecord{
		Kind: uint8(ev.Kind),
		Task: ev.Task,
		Seq:  s.seq,
		Tick: ev.Tick,
		Arg:  ev.Arg,
	}
	s.seq++
	if !s.ring.TryPut(rec) {
		s.dropped.Add(1)
	}
}

// Start registers the drain task. Give it the lowest priority so tracing
// only uses otherwise idle time.
func (s *Service) Start(k *kernel.Kernel, priority uint8, period uint32) error {
	if period == 0 {
		period = DefaultPeriod
	}
	s.k = k
	s.period = period
	return k.InitTask(&s.tcb, s.run, priority)
}

func (s *Service) run() {
	for {
		s.Drain()
		s.k.Delay(s.period)
	}
}

// Drain writes every queued event and returns how many frames went out.
func (s *Service) Drain() int {
	s.buf = s.buf[:0]
	n := 0
	for {
		rec, ok := s.ring.TryGet()
		if !ok {
			break
		}
		s.buf = proto.AppendTrace(s.buf, rec)
		n++
	}
	if n == 0 || s.out == nil {
		return n
	}
	if _, err := s.out.Write(s.buf); err != nil {
		s.dropped.Add(uint32(n))
		return 0
	}
	s.written.Add(uint32(n))
	return n
}

// Dropped returns the number of events lost to a full ring or a failed write.
func (s *Service) Dropped() uint32 { return s.dropped.Load() }

// Written returns the number of frames written.
func (s *Service) Written() uint32 { return s.written.Load() }

// Task returns the drain task's control block.
func (s *Service) Task() *kernel.TCB { return &s.tcb }
