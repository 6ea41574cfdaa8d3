package kernel

// Tick is the periodic timer handler. It advances the clock, counts down
// delayed tasks, reschedules and finally runs the tick hook.
func (k *Kernel) Tick() {
	k.ticks++

	for p := 0; p <= MaxPriority; p++ {
		g := &k.groups[p]
		for i := uint8(0); i < g.count; i++ {
			t := g.tasks[i]
			if t.state != TaskBlocked || t.blockedTicks == 0 {
				continue
			}
			t.blockedTicks--
			if t.blockedTicks == 0 {
				t.state = TaskReady
			}
		}
	}

	k.fromIRQ = true
	k.schedule()
	k.fromIRQ = false

	k.hooks.Tick()
}
