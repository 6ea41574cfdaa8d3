// Package sim runs the kernel on a simulated single-core processor.
//
// Every task gets its own goroutine, but only the goroutine holding the
// core executes; the others are parked until the switch exception hands the
// core to them. Interrupts raised from outside (the host tick, buttons) are
// queued and taken at the points where real hardware could take them:
// when interrupts are unmasked, when a switch is pended from thread mode and
// while the core sleeps in WaitForInterrupt.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"ember/kernel"
)

// CodeBase is the address of the first linked function. Addresses carry the
// Thumb bit, as they would in a real vector or stack frame.
const CodeBase uint32 = 0x1A000001

// VectorSysTick is the vector number of the periodic timer. External lines
// use 0 to kernel.NumIRQ-1.
const VectorSysTick = -1

var (
	ErrUnbound = errors.New("sim: no kernel bound")
	ErrRunning = errors.New("sim: already running")
	ErrHalted  = errors.New("sim: core halted")
)

// PanicError is the halt reason when Go code running on the core panics.
// Task is the id of the task that held the core, or kernel.IdleTaskID.
type PanicError struct {
	Task  uint8
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sim: task %d panicked: %v", e.Task, e.Value)
}

// Stats counts what the core has done since Run.
type Stats struct {
	Ticks    uint64
	IRQs     uint64
	Switches uint64
}

type thread struct {
	tcb  *kernel.TCB
	wake chan struct{}
}

// CPU implements kernel.Port.
type CPU struct {
	k    *kernel.Kernel
	code []func()

	// Owned by whichever goroutine holds the core.
	masked  bool
	inIRQ   bool
	lowered bool
	tick    func()
	tickHz  uint32
	lines   [kernel.NumIRQ]bool
	threads map[*kernel.TCB]*thread
	cur     *thread

	mu      sync.Mutex
	cond    *sync.Cond
	pending []int
	pendSV  bool
	parked  bool
	running bool
	halted  bool
	stopped bool
	err     error
	stats   Stats
	haltCh  chan struct{}
	stopCh  chan struct{}
}

// New returns a core with interrupts unmasked and nothing linked.
func New() *CPU {
	c := &CPU{
		threads: make(map[*kernel.TCB]*thread),
		haltCh:  make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Bind attaches the kernel whose DispatchIRQ serves external lines and
// whose NextContext serves the switch exception.
func (c *CPU) Bind(k *kernel.Kernel) { c.k = k }

// Run powers the core on and blocks until ctx is done, Stop is called or the
// core halts. The kernel must have been started.
func (c *CPU) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.k == nil {
		c.mu.Unlock()
		return ErrUnbound
	}
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()

	go c.boot()

	select {
	case <-ctx.Done():
		c.Stop()
		return ctx.Err()
	case <-c.stopCh:
		return nil
	case <-c.haltCh:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.err
	}
}

// boot is the reset context. It sleeps until the first switch leaves it
// for good.
func (c *CPU) boot() {
	defer c.recoverPanic(kernel.IdleTaskID)
	for c.waitForInterrupt() {
	}
}

func (c *CPU) recoverPanic(task uint8) {
	if r := recover(); r != nil {
		c.Halt(&PanicError{Task: task, Value: r, Stack: debug.Stack()})
	}
}

// Stop powers the core off. Parked goroutines exit.
func (c *CPU) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stopCh)
	c.cond.Broadcast()
}

// Halt stops the core after an unrecoverable error. It must be called by
// code running on the core, typically the kernel error hook, and does not
// return.
func (c *CPU) Halt(err error) {
	c.mu.Lock()
	if !c.halted {
		c.halted = true
		if err == nil {
			err = ErrHalted
		} else {
			err = fmt.Errorf("%w: %w", ErrHalted, err)
		}
		c.err = err
		close(c.haltCh)
		c.cond.Broadcast()
	}
	c.mu.Unlock()
	runtime.Goexit()
}

// Err returns the halt reason, nil while the core runs.
func (c *CPU) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Stats returns a snapshot of the core counters.
func (c *CPU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Raise marks vector pending. It is safe to call from any goroutine.
func (c *CPU) Raise(vector int) {
	if vector != VectorSysTick && (vector < 0 || vector >= kernel.NumIRQ) {
		return
	}
	c.mu.Lock()
	if !c.halted && !c.stopped {
		c.pending = append(c.pending, vector)
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// Tick raises the timer interrupt.
func (c *CPU) Tick() { c.Raise(VectorSysTick) }

// Settle blocks until the core sleeps with no interrupt pending, or has
// stopped.
func (c *CPU) Settle() {
	c.mu.Lock()
	for !c.halted && !c.stopped && !(c.parked && len(c.pending) == 0 && !c.pendSV) {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// Advance delivers n ticks, settling after each one.
func (c *CPU) Advance(n int) {
	for i := 0; i < n; i++ {
		c.Tick()
		c.Settle()
	}
}

func (c *CPU) DisableInterrupts() { c.masked = true }

func (c *CPU) EnableInterrupts() {
	c.masked = false
	c.service()
}

func (c *CPU) PendSwitch() {
	c.mu.Lock()
	c.pendSV = true
	c.mu.Unlock()
	c.service()
}

func (c *CPU) InInterrupt() bool { return c.inIRQ }

func (c *CPU) SetSwitchPriorityLowest() { c.lowered = true }

func (c *CPU) StartTick(hz uint32, handler func()) {
	c.tickHz = hz
	c.tick = handler
}

// TickHz returns the rate the kernel armed the timer at.
func (c *CPU) TickHz() uint32 { return c.tickHz }

func (c *CPU) Link(fn func()) uint32 {
	c.code = append(c.code, fn)
	return CodeBase + uint32(len(c.code)-1)*4
}

func (c *CPU) EnableIRQ(line int)  { c.lines[line] = true }
func (c *CPU) DisableIRQ(line int) { c.lines[line] = false }

func (c *CPU) WaitForInterrupt() {
	c.waitForInterrupt()
}

// waitForInterrupt sleeps until something is pending, then services it. It
// reports false once the calling context no longer holds the core.
func (c *CPU) waitForInterrupt() bool {
	c.mu.Lock()
	c.parked = true
	c.cond.Broadcast()
	for len(c.pending) == 0 && !c.stopped {
		c.cond.Wait()
	}
	c.parked = false
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		runtime.Goexit()
	}
	return c.service()
}

// service takes pending interrupts, then a pending switch, as long as the
// core is in thread mode with interrupts unmasked.
func (c *CPU) service() bool {
	for !c.masked && !c.inIRQ {
		c.mu.Lock()
		if len(c.pending) > 0 {
			v := c.pending[0]
			c.pending = c.pending[1:]
			if v == VectorSysTick {
				c.stats.Ticks++
			} else {
				c.stats.IRQs++
			}
			c.mu.Unlock()
			c.exception(v)
			continue
		}
		sv := c.pendSV
		c.pendSV = false
		c.mu.Unlock()
		if !sv {
			return true
		}
		if !c.switchContext() {
			return false
		}
	}
	return true
}

func (c *CPU) exception(v int) {
	c.inIRQ = true
	defer func() { c.inIRQ = false }()

	if v == VectorSysTick {
		if c.tick != nil {
			c.tick()
		}
		return
	}
	if c.lines[v] {
		c.k.DispatchIRQ(v)
	}
}

// switchContext runs the switch exception. The outgoing goroutine parks
// until it is switched back in; the reset context is never resumed.
func (c *CPU) switchContext() bool {
	prev := c.cur
	var sp uint32
	if prev != nil {
		sp = prev.tcb.StackPointer()
	}

	c.inIRQ = true
	nsp := c.k.NextContext(sp)
	c.inIRQ = false

	tcb := c.k.TaskBySP(nsp)
	if tcb == nil || (prev != nil && prev.tcb == tcb) {
		return true
	}
	next := c.threads[tcb]
	if next == nil {
		next = c.spawn(tcb)
	}

	c.mu.Lock()
	c.stats.Switches++
	c.mu.Unlock()

	c.cur = next
	next.wake <- struct{}{}
	if prev == nil {
		return false
	}
	c.park(prev)
	return true
}

func (c *CPU) park(t *thread) {
	select {
	case <-t.wake:
	case <-c.stopCh:
		runtime.Goexit()
	}
}

// spawn creates the goroutine for a task that has never run. Its entry
// point and return address come from the initial frame.
func (c *CPU) spawn(tcb *kernel.TCB) *thread {
	t := &thread{tcb: tcb, wake: make(chan struct{}, 1)}
	c.threads[tcb] = t

	var entry, ret func()
	if f, err := tcb.Frame(); err != nil {
		entry = c.fault(fmt.Errorf("sim: task %d: %w", tcb.ID(), err))
		ret = func() {}
	} else {
		entry = c.lookup(f.PC)
		ret = c.lookup(f.LR)
	}

	go func() {
		defer c.recoverPanic(tcb.ID())
		c.park(t)
		entry()
		ret()
		c.Halt(fmt.Errorf("sim: task %d returned", tcb.ID()))
	}()
	return t
}

func (c *CPU) lookup(addr uint32) func() {
	if addr < CodeBase || (addr-CodeBase)%4 != 0 {
		return c.fault(fmt.Errorf("sim: jump to 0x%08x", addr))
	}
	i := int((addr - CodeBase) / 4)
	if i >= len(c.code) {
		return c.fault(fmt.Errorf("sim: jump to unlinked 0x%08x", addr))
	}
	return c.code[i]
}

func (c *CPU) fault(err error) func() {
	return func() { c.Halt(err) }
}
