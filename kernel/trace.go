package kernel

// EventKind classifies trace events.
type EventKind uint8

const (
	EventBoot EventKind = iota + 1
	EventSwitch
	EventFatal
	EventIRQ
)

func (k EventKind) String() string {
	switch k {
	case EventBoot:
		return "boot"
	case EventSwitch:
		return "switch"
	case EventFatal:
		return "fatal"
	case EventIRQ:
		return "irq"
	default:
		return "unknown"
	}
}

// Event is one trace record. Task is the task id involved (IdleTaskID for
// idle); Arg depends on Kind: task count for boot, error code for fatal,
// line for irq.
type Event struct {
	Kind EventKind
	Tick uint32
	Task uint8
	Arg  uint32
}

// Tracer receives kernel events. Trace is called from interrupt context and
// must not block.
type Tracer interface {
	Trace(Event)
}

func (k *Kernel) trace(kind EventKind, task uint8, arg uint32) {
	if k.tracer == nil {
		return
	}
	k.tracer.Trace(Event{Kind: kind, Tick: k.ticks, Task: task, Arg: arg})
}
