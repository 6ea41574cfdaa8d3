package kernel

import "errors"

// ErrSchedulerStarted is returned by InitTask once tasks are being switched.
var ErrSchedulerStarted = errors.New("kernel: InitTask after the scheduler started")

// ErrorCode is a latched fatal kernel error.
type ErrorCode uint8

const (
	NoError ErrorCode = iota
	ErrMaxTaskExceeded
	ErrNoTaskAdded
	ErrTaskWithInvalidState
	ErrTaskPriorityExceeded
	ErrDelayFromInterrupt
)

func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "none"
	case ErrMaxTaskExceeded:
		return "max task exceeded"
	case ErrNoTaskAdded:
		return "no task added"
	case ErrTaskWithInvalidState:
		return "task with invalid state"
	case ErrTaskPriorityExceeded:
		return "task priority exceeded"
	case ErrDelayFromInterrupt:
		return "delay from interrupt"
	default:
		return "unknown"
	}
}

func (c ErrorCode) Error() string { return "kernel: " + c.String() }

// FatalError is handed to the error hook. Op names the kernel operation
// that detected the condition.
type FatalError struct {
	Code ErrorCode
	Op   string
	Task uint8
}

func (e *FatalError) Error() string {
	return "kernel: " + e.Op + ": " + e.Code.String()
}

func (e *FatalError) Unwrap() error { return e.Code }

func (k *Kernel) fatal(code ErrorCode, op string) *FatalError {
	k.err = code
	k.state = StateError

	fe := &FatalError{Code: code, Op: op, Task: IdleTaskID}
	if k.current != nil {
		fe.Task = k.current.id
	}
	k.trace(EventFatal, fe.Task, uint32(code))
	k.hooks.Error(fe)
	return fe
}
