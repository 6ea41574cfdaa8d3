package kernel

import (
	"errors"
	"testing"

	"ember/arch/cortexm"
)

type fakePort struct {
	masked   bool
	disables int
	enables  int
	pends    int
	irq      bool
	lowered  bool
	tickHz   uint32
	tick     func()
	code     []func()
	lines    [NumIRQ]bool
	onPend   func()
}

const fakeCodeBase = 0x1A000001

func (p *fakePort) DisableInterrupts() { p.masked = true; p.disables++ }
func (p *fakePort) EnableInterrupts()  { p.masked = false; p.enables++ }
func (p *fakePort) InInterrupt() bool  { return p.irq }
func (p *fakePort) SetSwitchPriorityLowest() {
	p.lowered = true
}
func (p *fakePort) StartTick(hz uint32, handler func()) {
	p.tickHz = hz
	p.tick = handler
}
func (p *fakePort) Link(fn func()) uint32 {
	p.code = append(p.code, fn)
	return fakeCodeBase + uint32(len(p.code)-1)*4
}
func (p *fakePort) WaitForInterrupt()   {}
func (p *fakePort) EnableIRQ(line int)  { p.lines[line] = true }
func (p *fakePort) DisableIRQ(line int) { p.lines[line] = false }
func (p *fakePort) PendSwitch() {
	p.pends++
	if p.onPend != nil {
		p.onPend()
	}
}

func (p *fakePort) call(addr uint32) {
	p.code[(addr-fakeCodeBase)/4]()
}

func nop() {}

func newTestKernel(t *testing.T) (*Kernel, *fakePort, *[]*FatalError) {
	t.Helper()
	p := &fakePort{}
	var errs []*FatalError
	k := New(p, Config{Hooks: Hooks{
		Error: func(e *FatalError) { errs = append(errs, e) },
	}})
	return k, p, &errs
}

func mustInit(t *testing.T, k *Kernel, tcb *TCB, priority uint8) {
	t.Helper()
	if err := k.InitTask(tcb, nop, priority); err != nil {
		t.Fatalf("InitTask(priority %d): %v", priority, err)
	}
}

// dispatch takes a pending switch the way the exception handler would.
func dispatch(k *Kernel, p *fakePort) bool {
	if p.pends == 0 {
		return false
	}
	p.pends = 0
	var sp uint32
	if k.state != StateFromReset && k.current != nil {
		sp = k.current.sp
	}
	k.NextContext(sp)
	return true
}

func step(k *Kernel, p *fakePort) {
	k.Tick()
	dispatch(k, p)
}

func boot(t *testing.T, k *Kernel, p *fakePort) {
	t.Helper()
	k.Start()
	k.Tick()
	if !dispatch(k, p) {
		t.Fatal("first tick did not request a switch")
	}
	if k.Current() != k.Idle() {
		t.Fatalf("first task = %v, want idle", k.Current())
	}
}

func countRunning(k *Kernel) int {
	n := 0
	k.EachTask(func(tcb *TCB) {
		if tcb.state == TaskRunning {
			n++
		}
	})
	if k.idle.state == TaskRunning {
		n++
	}
	return n
}

func TestInitTaskAssignsIDsAndFrame(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a, b, c TCB
	mustInit(t, k, &a, 1)
	mustInit(t, k, &b, 0)
	mustInit(t, k, &c, 1)

	for i, tcb := range []*TCB{&a, &b, &c} {
		if tcb.ID() != uint8(i) {
			t.Fatalf("task %d ID() = %d", i, tcb.ID())
		}
		if tcb.State() != TaskReady {
			t.Fatalf("task %d State() = %s, want ready", i, tcb.State())
		}
		base := StackRegionBase + uint32(i)*StackBytes
		if tcb.StackBase() != base {
			t.Fatalf("task %d StackBase() = 0x%x, want 0x%x", i, tcb.StackBase(), base)
		}
		if want := base + (StackWords-cortexm.FrameWords)*4; tcb.StackPointer() != want {
			t.Fatalf("task %d StackPointer() = 0x%x, want 0x%x", i, tcb.StackPointer(), want)
		}
		f, err := tcb.Frame()
		if err != nil {
			t.Fatalf("Frame: %v", err)
		}
		if f.PC != tcb.EntryPoint() || f.LR != k.retAddr || !f.Thumb() {
			t.Fatalf("task %d frame = %+v", i, f)
		}
	}
	if k.groups[1].count != 2 || k.groups[0].count != 1 {
		t.Fatalf("group counts = %d/%d, want 1/2", k.groups[0].count, k.groups[1].count)
	}
	if k.TaskCount() != 3 {
		t.Fatalf("TaskCount() = %d, want 3", k.TaskCount())
	}
	if len(p.code) != 5 {
		t.Fatalf("linked %d functions, want 5", len(p.code))
	}
}

func TestInitTaskMaxTaskExceeded(t *testing.T) {
	k, _, errs := newTestKernel(t)

	var tasks [MaxTasks + 1]TCB
	for i := 0; i < MaxTasks; i++ {
		mustInit(t, k, &tasks[i], uint8(i%(MaxPriority+1)))
	}
	err := k.InitTask(&tasks[MaxTasks], nop, 0)
	if !errors.Is(err, ErrMaxTaskExceeded) {
		t.Fatalf("9th InitTask err = %v, want ErrMaxTaskExceeded", err)
	}
	if len(*errs) != 1 || (*errs)[0].Code != ErrMaxTaskExceeded {
		t.Fatalf("error hook calls = %v", *errs)
	}
	if k.Err() != ErrMaxTaskExceeded {
		t.Fatalf("Err() = %s", k.Err())
	}
	if k.TaskCount() != MaxTasks {
		t.Fatalf("TaskCount() = %d, want %d", k.TaskCount(), MaxTasks)
	}
}

func TestInitTaskPriorityExceeded(t *testing.T) {
	k, _, errs := newTestKernel(t)

	var a TCB
	err := k.InitTask(&a, nop, MaxPriority+1)
	if !errors.Is(err, ErrTaskPriorityExceeded) {
		t.Fatalf("InitTask err = %v, want ErrTaskPriorityExceeded", err)
	}
	var fe *FatalError
	if !errors.As(err, &fe) || fe.Op != "InitTask" {
		t.Fatalf("InitTask err = %#v, want *FatalError from InitTask", err)
	}
	if len(*errs) != 1 {
		t.Fatalf("error hook called %d times, want 1", len(*errs))
	}
	if k.TaskCount() != 0 {
		t.Fatalf("TaskCount() = %d, want 0", k.TaskCount())
	}
}

func TestInitTaskAfterFirstSwitchIsRejected(t *testing.T) {
	k, p, errs := newTestKernel(t)

	var a, late TCB
	mustInit(t, k, &a, 1)
	boot(t, k, p)

	if err := k.InitTask(&late, nop, 0); !errors.Is(err, ErrSchedulerStarted) {
		t.Fatalf("InitTask after boot err = %v, want ErrSchedulerStarted", err)
	}
	if k.TaskCount() != 1 || k.groups[0].count != 0 {
		t.Fatalf("TaskCount() = %d, group 0 count = %d, want 1/0", k.TaskCount(), k.groups[0].count)
	}
	if len(*errs) != 0 {
		t.Fatalf("error hook calls = %v, want none", *errs)
	}
}

func TestStartResetsState(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a TCB
	mustInit(t, k, &a, 0)
	k.ticks = 99
	k.nest = 3
	k.Start()

	if k.State() != StateFromReset {
		t.Fatalf("State() = %s, want from reset", k.State())
	}
	if k.Ticks() != 0 || k.CriticalNesting() != 0 || k.SchedulingFromIRQ() {
		t.Fatalf("Start left ticks=%d nest=%d fromIRQ=%v", k.Ticks(), k.CriticalNesting(), k.SchedulingFromIRQ())
	}
	if !p.lowered {
		t.Fatal("switch priority not lowered")
	}
	if p.tickHz != DefaultTickHz || p.tick == nil {
		t.Fatalf("tick armed at %d Hz (handler %v)", p.tickHz, p.tick != nil)
	}
	if k.Current() != nil || k.Next() != nil {
		t.Fatal("Start left current/next set")
	}
	idle := k.Idle()
	if idle.ID() != IdleTaskID {
		t.Fatalf("idle ID() = 0x%x", idle.ID())
	}
	f, err := idle.Frame()
	if err != nil {
		t.Fatalf("idle Frame: %v", err)
	}
	if f.PC != k.idleAddr {
		t.Fatalf("idle PC = 0x%x, want 0x%x", f.PC, k.idleAddr)
	}
	if !idle.Owns(idle.StackPointer()) || a.Owns(idle.StackPointer()) {
		t.Fatal("idle stack overlaps a task stack")
	}
	if p.pends != 0 {
		t.Fatal("Start must not dispatch")
	}
}

func TestStartWithoutTasksIsFatal(t *testing.T) {
	k, p, errs := newTestKernel(t)
	k.Start()
	k.Tick()

	if k.Err() != ErrNoTaskAdded || k.State() != StateError {
		t.Fatalf("Err()/State() = %s/%s", k.Err(), k.State())
	}
	if len(*errs) != 1 || (*errs)[0].Op != "schedule" {
		t.Fatalf("error hook calls = %v", *errs)
	}
	if p.pends != 0 {
		t.Fatal("switch requested after fatal error")
	}
	k.Tick()
	if p.pends != 0 || len(*errs) != 1 {
		t.Fatal("scheduling resumed after fatal error")
	}
}

func TestFirstDispatchDiscardsBootContext(t *testing.T) {
	k, p, _ := newTestKernel(t)
	var a TCB
	mustInit(t, k, &a, 0)
	k.Start()
	k.Tick()
	if p.pends != 1 {
		t.Fatalf("pends = %d, want 1", p.pends)
	}

	idleSP := k.Idle().StackPointer()
	got := k.NextContext(0xCAFE0000)
	if got != idleSP {
		t.Fatalf("NextContext() = 0x%x, want idle sp 0x%x", got, idleSP)
	}
	if k.Idle().StackPointer() != idleSP {
		t.Fatal("boot stack pointer was saved into idle")
	}
	if k.State() != StateRunning || k.Idle().State() != TaskRunning {
		t.Fatalf("State()=%s idle=%s", k.State(), k.Idle().State())
	}
}

func TestTaskReturnRunsHook(t *testing.T) {
	p := &fakePort{}
	returned := 0
	k := New(p, Config{Hooks: Hooks{Return: func() { returned++ }}})

	var a TCB
	mustInit(t, k, &a, 0)
	f, err := a.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	p.call(f.LR)
	if returned != 1 {
		t.Fatalf("return hook ran %d times, want 1", returned)
	}
}

func TestCriticalNesting(t *testing.T) {
	k, p, _ := newTestKernel(t)

	k.EnterCritical()
	k.EnterCritical()
	if !p.masked || k.CriticalNesting() != 2 {
		t.Fatalf("masked=%v nest=%d", p.masked, k.CriticalNesting())
	}
	k.ExitCritical()
	if !p.masked || p.enables != 0 {
		t.Fatal("inner ExitCritical unmasked interrupts")
	}
	k.ExitCritical()
	if p.masked || p.enables != 1 {
		t.Fatal("outer ExitCritical did not unmask")
	}
	k.ExitCritical()
	if k.CriticalNesting() != 0 {
		t.Fatalf("nest = %d after extra exit, want 0", k.CriticalNesting())
	}
}
