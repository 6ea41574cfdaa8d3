package kernel

import "ember/arch/cortexm"

// TaskState is the lifecycle state of a task.
type TaskState uint8

const (
	TaskReady TaskState = iota
	TaskRunning
	TaskBlocked
	// TaskSuspended is reserved for manual suspend/resume; the scheduler skips it.
	TaskSuspended
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskBlocked:
		return "blocked"
	case TaskSuspended:
		return "suspended"
	default:
		return "invalid"
	}
}

// TCB is a task control block. Allocate it statically; the kernel keeps a
// pointer to it for the lifetime of the system.
type TCB struct {
	stack        [StackWords]uint32
	base         uint32
	sp           uint32
	entry        uint32
	state        TaskState
	priority     uint8
	id           uint8
	blockedTicks uint32
}

func (t *TCB) ID() uint8            { return t.id }
func (t *TCB) Priority() uint8      { return t.priority }
func (t *TCB) State() TaskState     { return t.state }
func (t *TCB) StackPointer() uint32 { return t.sp }
func (t *TCB) EntryPoint() uint32   { return t.entry }
func (t *TCB) BlockedTicks() uint32 { return t.blockedTicks }
func (t *TCB) StackBase() uint32    { return t.base }
func (t *TCB) Frame() (cortexm.Frame, error) {
	return cortexm.Decode(t.stack[:], t.base, t.sp)
}

// Owns reports whether sp points into this task's stack.
func (t *TCB) Owns(sp uint32) bool {
	return sp >= t.base && sp < t.base+StackBytes
}

func (t *TCB) setup(base, entry, ret uint32) error {
	t.base = base
	sp, err := cortexm.Build(t.stack[:], base, entry, ret)
	if err != nil {
		return err
	}
	t.sp = sp
	t.entry = entry
	t.blockedTicks = 0
	return nil
}
