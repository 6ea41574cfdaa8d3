package kernel

// Port is everything the kernel needs from the processor.
//
// The kernel never touches hardware directly; a port supplies interrupt
// masking, the pendable switch exception, the periodic tick and a way to
// turn Go functions into code addresses for initial stack frames.
type Port interface {
	// DisableInterrupts masks all maskable interrupts.
	DisableInterrupts()
	// EnableInterrupts unmasks interrupts. Pending work may run before it returns.
	EnableInterrupts()
	// PendSwitch requests the context-switch exception.
	PendSwitch()
	// InInterrupt reports whether the caller runs in handler mode.
	InInterrupt() bool
	// SetSwitchPriorityLowest makes the switch exception the lowest-priority handler.
	SetSwitchPriorityLowest()
	// StartTick arms the periodic timer at hz, calling handler on every tick.
	StartTick(hz uint32, handler func())
	// Link returns the code address used to start fn from a stack frame.
	Link(fn func()) uint32
	// WaitForInterrupt sleeps until an interrupt is pending and serviced.
	WaitForInterrupt()
	// EnableIRQ and DisableIRQ gate one external interrupt line.
	EnableIRQ(line int)
	DisableIRQ(line int)
}
