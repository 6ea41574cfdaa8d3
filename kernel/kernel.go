// Package kernel is a preemptive, priority-based real-time kernel for a
// single-core Cortex-M class processor.
//
// All kernel state lives in one Kernel value. Hardware access goes through
// a Port, so the same scheduler runs on a board or on the simulated core in
// ember/port/sim.
package kernel

import "fmt"

const (
	// MaxTasks is the capacity of the static task table (idle not included).
	MaxTasks = 8
	// MaxPriority is the lowest priority; 0 is the highest.
	MaxPriority = 3

	StackBytes = 256
	StackWords = StackBytes / 4

	// IdleTaskID is reserved for the idle task.
	IdleTaskID = 0xFF

	// StackRegionBase is where task stacks are laid out, one StackBytes slot
	// per registration index and the idle stack after the last slot.
	StackRegionBase uint32 = 0x20000000

	DefaultTickHz = 1000
)

// State is the global kernel state.
type State uint8

const (
	StateFromReset State = iota
	StateRunning
	StateScheduling
	StateError
	StateRunningFromIRQ
)

func (s State) String() string {
	switch s {
	case StateFromReset:
		return "from reset"
	case StateRunning:
		return "running"
	case StateScheduling:
		return "scheduling"
	case StateError:
		return "error"
	case StateRunningFromIRQ:
		return "running from irq"
	default:
		return "unknown"
	}
}

// Config holds boot-time settings.
type Config struct {
	TickHz uint32
	Hooks  Hooks
	Tracer Tracer
}

type group struct {
	tasks  [MaxTasks]*TCB
	cursor uint8
	count  uint8
}

// Kernel is the scheduler plus every piece of state it shares with
// interrupt handlers.
type Kernel struct {
	port   Port
	hooks  Hooks
	tracer Tracer
	tickHz uint32

	groups     [MaxPriority + 1]group
	tasksAdded uint8
	idle       TCB

	current *TCB
	next    *TCB

	state        State
	err          ErrorCode
	switchNeeded bool
	nest         int16
	fromIRQ      bool
	yieldFromIRQ bool
	ticks        uint32

	irqs [NumIRQ]func()

	retAddr  uint32
	idleAddr uint32
}

// New creates a kernel bound to port. Register tasks with InitTask, then
// call Start.
func New(port Port, cfg Config) *Kernel {
	if cfg.TickHz == 0 {
		cfg.TickHz = DefaultTickHz
	}
	cfg.Hooks.fill()
	k := &Kernel{
		port:   port,
		hooks:  cfg.Hooks,
		tracer: cfg.Tracer,
		tickHz: cfg.TickHz,
	}
	k.retAddr = port.Link(k.taskReturned)
	k.idleAddr = port.Link(k.idleLoop)
	return k
}

// InitTask registers t with entry as its body. Exceeding MaxTasks or
// MaxPriority is fatal: the error hook runs and the error is returned.
//
// Tasks can only be added before the first switch; after that it returns
// ErrSchedulerStarted.
func (k *Kernel) InitTask(t *TCB, entry func(), priority uint8) error {
	if k.current != nil || (k.state != StateFromReset && k.state != StateError) {
		return ErrSchedulerStarted
	}
	if k.tasksAdded >= MaxTasks {
		return k.fatal(ErrMaxTaskExceeded, "InitTask")
	}
	if priority > MaxPriority {
		return k.fatal(ErrTaskPriorityExceeded, "InitTask")
	}
	if entry == nil {
		return fmt.Errorf("kernel: InitTask: nil entry point")
	}

	base := StackRegionBase + uint32(k.tasksAdded)*StackBytes
	if err := t.setup(base, k.port.Link(entry), k.retAddr); err != nil {
		return fmt.Errorf("kernel: InitTask: %w", err)
	}
	t.state = TaskReady
	t.id = k.tasksAdded
	t.priority = priority

	g := &k.groups[priority]
	g.tasks[g.count] = t
	g.count++
	k.tasksAdded++
	return nil
}

// Start resets the scheduler and arms the tick. The first switch exception,
// requested by the first tick, leaves the boot context for the idle task.
func (k *Kernel) Start() {
	k.port.SetSwitchPriorityLowest()

	base := StackRegionBase + MaxTasks*StackBytes
	if err := k.idle.setup(base, k.idleAddr, k.retAddr); err != nil {
		// The idle stack is a constant size; this only trips if the frame grows.
		panic(err)
	}
	k.idle.state = TaskReady
	k.idle.id = IdleTaskID
	k.idle.priority = MaxPriority + 1

	k.current = nil
	k.next = nil
	k.err = NoError
	k.state = StateFromReset
	k.nest = 0
	k.fromIRQ = false
	k.yieldFromIRQ = false
	k.ticks = 0

	k.trace(EventBoot, IdleTaskID, uint32(k.tasksAdded))
	k.port.StartTick(k.tickHz, k.Tick)
}

func (k *Kernel) idleLoop() {
	for {
		k.hooks.Idle()
		k.port.WaitForInterrupt()
	}
}

func (k *Kernel) taskReturned() {
	k.hooks.Return()
}

// State returns the global kernel state.
func (k *Kernel) State() State { return k.state }

// Err returns the latched fatal error.
func (k *Kernel) Err() ErrorCode { return k.err }

// Ticks returns the number of ticks since Start.
func (k *Kernel) Ticks() uint32 { return k.ticks }

// TickHz returns the configured tick rate.
func (k *Kernel) TickHz() uint32 { return k.tickHz }

// Current returns the task that owns the processor, nil before the first switch.
func (k *Kernel) Current() *TCB { return k.current }

// Next returns the task most recently selected by the scheduler.
func (k *Kernel) Next() *TCB { return k.next }

// Idle returns the idle task.
func (k *Kernel) Idle() *TCB { return &k.idle }

// TaskCount returns the number of registered tasks.
func (k *Kernel) TaskCount() int { return int(k.tasksAdded) }

// SchedulingFromIRQ reports whether the tick handler is inside the
// scheduling decision.
func (k *Kernel) SchedulingFromIRQ() bool { return k.fromIRQ }

// EachTask calls fn for every registered task, by priority then
// registration order. The idle task is not included.
func (k *Kernel) EachTask(fn func(*TCB)) {
	for p := 0; p <= MaxPriority; p++ {
		g := &k.groups[p]
		for i := uint8(0); i < g.count; i++ {
			fn(g.tasks[i])
		}
	}
}

// TaskBySP returns the task whose stack contains sp, including idle.
func (k *Kernel) TaskBySP(sp uint32) *TCB {
	if k.idle.Owns(sp) {
		return &k.idle
	}
	var found *TCB
	k.EachTask(func(t *TCB) {
		if found == nil && t.Owns(sp) {
			found = t
		}
	})
	return found
}

// InInterrupt reports whether the caller runs in interrupt context.
func (k *Kernel) InInterrupt() bool {
	return k.state == StateRunningFromIRQ || k.fromIRQ || k.port.InInterrupt()
}
