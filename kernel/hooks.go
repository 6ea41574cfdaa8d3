package kernel

// Hooks are the application's extension points. Nil fields get defaults in
// New: Return and Error halt, Idle and Tick do nothing.
type Hooks struct {
	// Return runs if a task body returns.
	Return func()
	// Idle runs on every pass of the idle task, before waiting for an interrupt.
	Idle func()
	// Tick runs at the end of every tick, in interrupt context.
	Tick func()
	// Error receives every fatal condition. The kernel stops scheduling
	// whether or not it returns.
	Error func(*FatalError)
}

func halt() {
	select {}
}

func (h *Hooks) fill() {
	if h.Return == nil {
		h.Return = halt
	}
	if h.Idle == nil {
		h.Idle = func() {}
	}
	if h.Tick == nil {
		h.Tick = func() {}
	}
	if h.Error == nil {
		h.Error = func(*FatalError) { halt() }
	}
}
