package kernel

// Semaphore is a binary semaphore. Only the last task to take it or block
// on it is remembered: a second waiter overwrites the first one's record
// and is only retried when it is readied for another reason.
type Semaphore struct {
	taken   bool
	takenBy *TCB
}

// Taken reports whether the semaphore is held.
func (s *Semaphore) Taken() bool { return s.taken }

// TakenBy returns the recorded owner or waiter.
func (s *Semaphore) TakenBy() *TCB { return s.takenBy }

// SemInit releases s and forgets any owner.
func (k *Kernel) SemInit(s *Semaphore) {
	s.taken = false
	s.takenBy = nil
}

// SemTake blocks until s is free, then takes it. Interrupt handlers cannot
// block, so from interrupt context it does nothing.
func (k *Kernel) SemTake(s *Semaphore) {
	if k.InInterrupt() {
		return
	}
	t := k.current
	if t == nil || t.state != TaskRunning {
		return
	}

	for {
		k.EnterCritical()
		if !s.taken {
			s.taken = true
			s.takenBy = t
			k.ExitCritical()
			return
		}
		s.takenBy = t
		t.state = TaskBlocked
		k.ExitCritical()
		k.Yield()
	}
}

// SemGive releases s and readies the recorded task if it is blocked. Giving
// a free semaphore, or one with no recorded task, has no effect.
func (k *Kernel) SemGive(s *Semaphore) {
	k.EnterCritical()
	if s.taken && s.takenBy != nil {
		s.taken = false
		if s.takenBy.state == TaskBlocked {
			s.takenBy.state = TaskReady
			if k.InInterrupt() {
				k.yieldFromIRQ = true
			}
		}
	}
	k.ExitCritical()
}
