package kernel

// Delay blocks the running task for ticks ticks. A zero delay, or a caller
// that is not the running task, returns at once. Calling it from interrupt
// context is fatal.
func (k *Kernel) Delay(ticks uint32) {
	if k.InInterrupt() {
		k.fatal(ErrDelayFromInterrupt, "Delay")
		return
	}
	t := k.current
	if ticks == 0 || t == nil || t.state != TaskRunning {
		return
	}

	k.EnterCritical()
	t.blockedTicks = ticks
	k.ExitCritical()

	// Only Tick clears blockedTicks; an early resume goes straight back to sleep.
	for t.blockedTicks > 0 {
		k.EnterCritical()
		t.state = TaskBlocked
		k.ExitCritical()
		k.Yield()
	}
}
