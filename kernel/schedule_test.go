package kernel

import "testing"

func TestHigherPriorityStarvesLower(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var high, low1, low2 TCB
	mustInit(t, k, &high, 0)
	mustInit(t, k, &low1, 1)
	mustInit(t, k, &low2, 1)
	boot(t, k, p)

	for i := 0; i < 20; i++ {
		step(k, p)
		if k.Current() != &high {
			t.Fatalf("tick %d: running task %d, want %d", i, k.Current().ID(), high.ID())
		}
		if low1.State() == TaskRunning || low2.State() == TaskRunning {
			t.Fatalf("tick %d: low priority task running", i)
		}
		if n := countRunning(k); n != 1 {
			t.Fatalf("tick %d: %d running tasks", i, n)
		}
	}
}

func TestRoundRobinVisitsEveryPeer(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var tasks [3]TCB
	for i := range tasks {
		mustInit(t, k, &tasks[i], 2)
	}
	boot(t, k, p)

	var order []uint8
	for i := 0; i < 9; i++ {
		step(k, p)
		order = append(order, k.Current().ID())
		if n := countRunning(k); n != 1 {
			t.Fatalf("tick %d: %d running tasks", i, n)
		}
	}
	for i := 0; i+3 <= len(order); i++ {
		seen := map[uint8]bool{}
		for _, id := range order[i : i+3] {
			seen[id] = true
		}
		if len(seen) != 3 {
			t.Fatalf("window %v does not visit every task (order %v)", order[i:i+3], order)
		}
	}
	// The cursor starts at slot 0, so slot 1 runs first.
	if order[0] != 1 {
		t.Fatalf("first pick = %d, want 1", order[0])
	}
}

func TestLoneTaskKeepsProcessor(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a TCB
	mustInit(t, k, &a, 3)
	boot(t, k, p)
	step(k, p)
	if k.Current() != &a {
		t.Fatalf("current = %d, want %d", k.Current().ID(), a.ID())
	}
	for i := 0; i < 5; i++ {
		k.Tick()
		if p.pends != 0 {
			t.Fatalf("tick %d requested a switch for a lone running task", i)
		}
	}
}

func TestBlockedGroupFallsThrough(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var high, low TCB
	mustInit(t, k, &high, 0)
	mustInit(t, k, &low, 1)
	boot(t, k, p)

	high.state = TaskBlocked
	step(k, p)
	if k.Current() != &low {
		t.Fatalf("current = %d, want low", k.Current().ID())
	}

	high.state = TaskReady
	step(k, p)
	if k.Current() != &high {
		t.Fatalf("current = %d, want high once ready", k.Current().ID())
	}
	if low.State() != TaskReady {
		t.Fatalf("preempted task state = %s, want ready", low.State())
	}
}

func TestAllBlockedSelectsIdle(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a, b TCB
	mustInit(t, k, &a, 0)
	mustInit(t, k, &b, 0)
	boot(t, k, p)
	step(k, p)

	a.state = TaskBlocked
	b.state = TaskBlocked
	k.Yield()
	if k.Next() != k.Idle() {
		t.Fatalf("Next() = %v, want idle", k.Next())
	}
	if !dispatch(k, p) || k.Current() != k.Idle() {
		t.Fatal("expected switch to idle")
	}
}

func TestSuspendedTasksAreSkipped(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a, b, c TCB
	mustInit(t, k, &a, 1)
	mustInit(t, k, &b, 1)
	mustInit(t, k, &c, 2)
	boot(t, k, p)

	a.state = TaskSuspended
	b.state = TaskSuspended
	step(k, p)
	if k.Current() != &c {
		t.Fatalf("current = %d, want %d", k.Current().ID(), c.ID())
	}

	c.state = TaskSuspended
	k.Yield()
	if k.Next() != k.Idle() {
		t.Fatalf("Next() = %v, want idle with every task suspended", k.Next())
	}
}

func TestInvalidStateIsFatal(t *testing.T) {
	k, p, errs := newTestKernel(t)

	var a TCB
	mustInit(t, k, &a, 0)
	boot(t, k, p)

	a.state = TaskState(42)
	k.Tick()
	if k.Err() != ErrTaskWithInvalidState || k.State() != StateError {
		t.Fatalf("Err()/State() = %s/%s", k.Err(), k.State())
	}
	if len(*errs) != 1 || (*errs)[0].Op != "selectByPriority" {
		t.Fatalf("error hook calls = %v", *errs)
	}
	p.pends = 0
	a.state = TaskReady
	k.Tick()
	if p.pends != 0 {
		t.Fatal("scheduler resumed after fatal error")
	}
}

func TestSwitchRequestTracksPreviousSelection(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a, b TCB
	mustInit(t, k, &a, 0)
	mustInit(t, k, &b, 1)
	boot(t, k, p)

	k.Tick()
	if p.pends != 1 || k.Next() != &a {
		t.Fatalf("pends=%d next=%v, want a", p.pends, k.Next())
	}
	// Selecting a again before the switch is taken must not pend twice.
	k.Yield()
	if p.pends != 1 {
		t.Fatalf("pends = %d after identical selection, want 1", p.pends)
	}
}

func TestScheduleSkipsWhileNotRunning(t *testing.T) {
	k, p, _ := newTestKernel(t)

	var a TCB
	mustInit(t, k, &a, 0)
	boot(t, k, p)

	k.state = StateScheduling
	k.Tick()
	if p.pends != 0 || k.Next() != nil {
		t.Fatal("nested scheduling decision ran")
	}
	if k.State() != StateScheduling {
		t.Fatalf("State() = %s, want scheduling untouched", k.State())
	}
}
