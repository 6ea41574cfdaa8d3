package kernel

// Yield runs the scheduling decision from task context. Blocking primitives
// call it right after marking the caller Blocked so the processor is handed
// over without waiting for the next tick.
func (k *Kernel) Yield() {
	k.schedule()
}

func (k *Kernel) schedule() {
	k.switchNeeded = false

	switch k.state {
	case StateFromReset:
		if k.tasksAdded == 0 {
			k.fatal(ErrNoTaskAdded, "schedule")
			return
		}
		// First dispatch always goes through idle.
		k.current = &k.idle
		k.switchNeeded = true

	case StateRunning:
		k.state = StateScheduling

		var selected *TCB
		for p := 0; p <= MaxPriority && selected == nil; p++ {
			selected = k.selectByPriority(uint8(p))
			if k.state == StateError {
				return
			}
		}
		if selected == nil {
			selected = &k.idle
		}
		k.switchNeeded = k.next != selected
		k.next = selected
		k.state = StateRunning

	default:
		// Scheduling, error or interrupt dispatch in progress.
		return
	}

	if k.switchNeeded {
		k.port.PendSwitch()
	}
}

// selectByPriority picks the next runnable task of one priority, round-robin
// from the task after the group cursor. A Running task counts as runnable so
// a lone task keeps the processor.
func (k *Kernel) selectByPriority(priority uint8) *TCB {
	g := &k.groups[priority]
	if g.count == 0 {
		return nil
	}

	id := g.cursor
	found := false
	var blocked uint8
scan:
	for seen := uint8(0); seen < g.count; seen++ {
		id++
		if id >= g.count {
			id = 0
		}
		switch g.tasks[id].state {
		case TaskReady, TaskRunning:
			found = true
			break scan
		case TaskBlocked:
			blocked++
			if blocked >= g.count {
				break scan
			}
		case TaskSuspended:
		default:
			k.fatal(ErrTaskWithInvalidState, "selectByPriority")
			return nil
		}
	}
	if !found {
		return nil
	}

	if id != g.cursor {
		g.cursor = id
	}
	return g.tasks[id]
}
