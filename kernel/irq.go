package kernel

// NumIRQ is the number of external interrupt lines that can carry a handler.
const NumIRQ = 53

// InsertIRQ attaches handler to line and enables the line. It fails if the
// line is out of range or already has a handler.
func (k *Kernel) InsertIRQ(line int, handler func()) bool {
	if line < 0 || line >= NumIRQ || handler == nil || k.irqs[line] != nil {
		return false
	}
	k.irqs[line] = handler
	k.port.EnableIRQ(line)
	return true
}

// RemoveIRQ disables line and detaches its handler.
func (k *Kernel) RemoveIRQ(line int) bool {
	if line < 0 || line >= NumIRQ || k.irqs[line] == nil {
		return false
	}
	k.port.DisableIRQ(line)
	k.irqs[line] = nil
	return true
}

// DispatchIRQ is the common entry for external interrupts. The handler runs
// with the kernel in StateRunningFromIRQ; if it readied a task through a
// queue or semaphore, the scheduling decision runs before returning so the
// task does not wait for the next tick.
func (k *Kernel) DispatchIRQ(line int) {
	if line < 0 || line >= NumIRQ {
		return
	}
	handler := k.irqs[line]
	if handler == nil {
		return
	}

	prev := k.state
	k.state = StateRunningFromIRQ
	k.yieldFromIRQ = false
	task := uint8(IdleTaskID)
	if k.current != nil {
		task = k.current.id
	}
	k.trace(EventIRQ, task, uint32(line))

	handler()

	if k.state != StateRunningFromIRQ {
		// A fatal error inside the handler.
		return
	}
	k.state = prev

	if k.yieldFromIRQ && prev == StateRunning {
		k.yieldFromIRQ = false
		k.fromIRQ = true
		k.schedule()
		k.fromIRQ = false
	}
}
