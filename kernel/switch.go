package kernel

// NextContext is the body of the context-switch exception. It receives the
// stack pointer of the context being left and returns the one to resume.
//
// The very first call leaves the boot context without saving it. Afterwards
// the outgoing task keeps its state unless it was Running, in which case it
// was preempted and goes back to Ready.
func (k *Kernel) NextContext(sp uint32) uint32 {
	if k.state == StateFromReset {
		if k.current == nil {
			return sp
		}
		k.current.state = TaskRunning
		k.state = StateRunning
		k.trace(EventSwitch, k.current.id, k.current.sp)
		return k.current.sp
	}

	if k.current == nil || k.next == nil {
		return sp
	}

	k.current.sp = sp
	if k.current.state == TaskRunning {
		k.current.state = TaskReady
	}

	k.current = k.next
	k.current.state = TaskRunning
	k.trace(EventSwitch, k.current.id, k.current.sp)
	return k.current.sp
}
