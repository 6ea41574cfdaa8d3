//go:build !tinygo

package hal

import "time"

// hostTime turns wall-clock time into a tick stream. step is called from
// the runner loop; ticks missed between calls are delivered in a burst.
type hostTime struct {
	ch      chan uint64
	seq     uint64
	tickDur time.Duration

	last time.Time
	acc  time.Duration
}

func newHostTime(hz int) *hostTime {
	d := time.Second / time.Duration(hz)
	if d <= 0 {
		d = time.Nanosecond
	}
	return &hostTime{
		ch:      make(chan uint64, 1024),
		tickDur: d,
	}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

func (t *hostTime) step() {
	t.stepAt(time.Now())
}

func (t *hostTime) stepAt(now time.Time) {
	if t.last.IsZero() {
		t.last = now
		t.acc = 0
		t.stepN(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	ticks := uint64(t.acc / t.tickDur)
	if ticks == 0 {
		return
	}
	t.acc = t.acc % t.tickDur
	t.stepN(ticks)
}

func (t *hostTime) stepN(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
