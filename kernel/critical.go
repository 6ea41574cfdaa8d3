package kernel

// EnterCritical masks interrupts. Sections nest; only the outermost
// ExitCritical unmasks.
func (k *Kernel) EnterCritical() {
	k.port.DisableInterrupts()
	k.nest++
}

// ExitCritical leaves one critical section level. Extra calls are absorbed.
func (k *Kernel) ExitCritical() {
	k.nest--
	if k.nest <= 0 {
		k.nest = 0
		k.port.EnableInterrupts()
	}
}

// CriticalNesting returns the current nesting depth.
func (k *Kernel) CriticalNesting() int { return int(k.nest) }
