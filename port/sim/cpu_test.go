package sim_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ember/kernel"
	"ember/port/sim"
)

type rig struct {
	t    *testing.T
	cpu  *sim.CPU
	k    *kernel.Kernel
	errc chan error
}

func newRig(t *testing.T, hooks kernel.Hooks) *rig {
	t.Helper()
	cpu := sim.New()
	if hooks.Error == nil {
		hooks.Error = func(e *kernel.FatalError) { cpu.Halt(e) }
	}
	k := kernel.New(cpu, kernel.Config{Hooks: hooks})
	cpu.Bind(k)
	return &rig{t: t, cpu: cpu, k: k, errc: make(chan error, 1)}
}

func (r *rig) task(tcb *kernel.TCB, priority uint8, body func()) {
	r.t.Helper()
	if err := r.k.InitTask(tcb, body, priority); err != nil {
		r.t.Fatalf("InitTask: %v", err)
	}
}

// run starts the kernel and powers the core on without delivering a tick.
func (r *rig) run() {
	r.k.Start()
	ctx, cancel := context.WithCancel(context.Background())
	r.t.Cleanup(cancel)
	go func() { r.errc <- r.cpu.Run(ctx) }()
}

// boot runs the core and leaves the reset context for idle.
func (r *rig) boot() {
	r.t.Helper()
	r.run()
	r.cpu.Advance(1)
	if r.k.Current() != r.k.Idle() {
		r.t.Fatalf("after first tick current = %v, want idle", r.k.Current())
	}
}

func (r *rig) wait() error {
	r.t.Helper()
	select {
	case err := <-r.errc:
		return err
	case <-time.After(5 * time.Second):
		r.t.Fatal("core did not stop")
		return nil
	}
}

func sleepForever(k *kernel.Kernel) {
	for {
		k.Delay(1000)
	}
}

func TestLinkAddresses(t *testing.T) {
	cpu := sim.New()
	a := cpu.Link(func() {})
	b := cpu.Link(func() {})
	if a != sim.CodeBase || b != sim.CodeBase+4 {
		t.Fatalf("Link() = 0x%x, 0x%x", a, b)
	}
	if a&1 == 0 {
		t.Fatal("linked address lacks the Thumb bit")
	}
}

func TestRunUnbound(t *testing.T) {
	if err := sim.New().Run(context.Background()); !errors.Is(err, sim.ErrUnbound) {
		t.Fatalf("Run() err = %v, want ErrUnbound", err)
	}
}

func TestDelayWakesOnExactTick(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var got []uint32
	var a kernel.TCB
	r.task(&a, 0, func() {
		for _, n := range []uint32{1, 3, 10} {
			start := r.k.Ticks()
			r.k.Delay(n)
			got = append(got, r.k.Ticks()-start)
		}
		sleepForever(r.k)
	})
	r.boot()
	r.cpu.Advance(20)

	want := []uint32{1, 3, 10}
	if len(got) != len(want) {
		t.Fatalf("delays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delays = %v, want %v", got, want)
		}
	}
}

func TestQueueInsertBlocksWhileFull(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var q kernel.Queue
	if err := r.k.QueueInit(&q, 4); err != nil {
		t.Fatal(err)
	}

	inserted, removed := 0, 0
	var first byte = 0xAA
	var producer, consumer kernel.TCB
	r.task(&producer, 0, func() {
		for i := 0; i < 65; i++ {
			r.k.QueueInsert(&q, []byte{byte(i)})
			inserted++
		}
		sleepForever(r.k)
	})
	r.task(&consumer, 1, func() {
		r.k.Delay(5)
		out := make([]byte, 4)
		r.k.QueueRemove(&q, out)
		first = out[0]
		removed++
		sleepForever(r.k)
	})
	r.boot()

	r.cpu.Advance(1)
	if inserted != 64 || q.Len() != 64 {
		t.Fatalf("inserted=%d len=%d, want 64 before the queue fills", inserted, q.Len())
	}
	if producer.State() != kernel.TaskBlocked || q.Waiting() != &producer {
		t.Fatalf("producer state=%s waiting=%v", producer.State(), q.Waiting())
	}

	r.cpu.Advance(4)
	if inserted != 64 || removed != 0 {
		t.Fatalf("inserted=%d removed=%d before consumer wakes", inserted, removed)
	}

	r.cpu.Advance(1)
	if removed != 1 || first != 0 {
		t.Fatalf("removed=%d first=%d, want 1/0", removed, first)
	}
	if inserted != 65 || q.Len() != 64 {
		t.Fatalf("inserted=%d len=%d, want 65/64 after a slot frees", inserted, q.Len())
	}
}

func TestSemaphoreMutualExclusion(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var s kernel.Semaphore
	r.k.SemInit(&s)

	inside, violations := 0, 0
	var entries [2]int
	worker := func(i int) func() {
		return func() {
			for {
				r.k.SemTake(&s)
				inside++
				if inside != 1 {
					violations++
				}
				entries[i]++
				r.k.Delay(2)
				inside--
				r.k.SemGive(&s)
				r.k.Delay(1)
			}
		}
	}
	var a, b kernel.TCB
	r.task(&a, 1, worker(0))
	r.task(&b, 1, worker(1))
	r.boot()
	r.cpu.Advance(60)

	if violations != 0 {
		t.Fatalf("%d overlapping critical sections", violations)
	}
	if entries[0] == 0 || entries[1] == 0 {
		t.Fatalf("entries = %v, want both tasks to get the semaphore", entries)
	}
}

func TestSemaphoreRemembersOnlyLastWaiter(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var s kernel.Semaphore
	r.k.SemInit(&s)

	gave := false
	got := map[string]bool{}
	var a, b, c kernel.TCB
	r.task(&a, 1, func() {
		r.k.SemTake(&s)
		r.k.Delay(8)
		r.k.SemGive(&s)
		gave = true
		sleepForever(r.k)
	})
	waiter := func(name string, wait uint32) func() {
		return func() {
			r.k.Delay(wait)
			r.k.SemTake(&s)
			got[name] = true
			sleepForever(r.k)
		}
	}
	r.task(&b, 1, waiter("b", 1))
	r.task(&c, 1, waiter("c", 3))
	r.boot()

	r.cpu.Advance(6)
	if b.State() != kernel.TaskBlocked || c.State() != kernel.TaskBlocked {
		t.Fatalf("b=%s c=%s, want both blocked on the semaphore", b.State(), c.State())
	}
	if s.TakenBy() != &c {
		t.Fatalf("TakenBy() = %v, want c (the later waiter)", s.TakenBy())
	}

	r.cpu.Advance(8)
	if !gave {
		t.Fatal("owner never gave the semaphore")
	}
	if !got["c"] || got["b"] {
		t.Fatalf("acquired = %v, want only c", got)
	}
	if b.State() != kernel.TaskBlocked {
		t.Fatalf("b state = %s, want blocked", b.State())
	}
	if !s.Taken() || s.TakenBy() != &c {
		t.Fatalf("Taken()=%v TakenBy()=%v, want held by c", s.Taken(), s.TakenBy())
	}
}

func TestQueueRemembersOnlyLastRemover(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var q kernel.Queue
	if err := r.k.QueueInit(&q, 1); err != nil {
		t.Fatal(err)
	}

	got := map[string][]byte{}
	var producer, b, c kernel.TCB
	r.task(&producer, 0, func() {
		r.k.Delay(8)
		r.k.QueueInsert(&q, []byte{1})
		r.k.Delay(4)
		r.k.QueueInsert(&q, []byte{2})
		sleepForever(r.k)
	})
	remover := func(name string, wait uint32) func() {
		return func() {
			r.k.Delay(wait)
			out := make([]byte, 1)
			r.k.QueueRemove(&q, out)
			got[name] = append(got[name], out[0])
			sleepForever(r.k)
		}
	}
	r.task(&b, 1, remover("b", 1))
	r.task(&c, 1, remover("c", 3))
	r.boot()

	r.cpu.Advance(6)
	if b.State() != kernel.TaskBlocked || c.State() != kernel.TaskBlocked {
		t.Fatalf("b=%s c=%s, want both blocked on the queue", b.State(), c.State())
	}
	if q.Waiting() != &c {
		t.Fatalf("Waiting() = %v, want c", q.Waiting())
	}

	r.cpu.Advance(10)
	if len(got["c"]) != 1 || got["c"][0] != 1 || len(got["b"]) != 0 {
		t.Fatalf("removed = %v, want c:[1] only", got)
	}
	if b.State() != kernel.TaskBlocked {
		t.Fatalf("b state = %s, want blocked", b.State())
	}
	if q.Len() != 1 || q.Waiting() != nil {
		t.Fatalf("Len()=%d Waiting()=%v, want the second element left unread", q.Len(), q.Waiting())
	}
}

func TestInterruptWakesConsumerBeforeNextTick(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var q kernel.Queue
	if err := r.k.QueueInit(&q, 1); err != nil {
		t.Fatal(err)
	}
	var got byte
	var gotAt uint32
	received := 0
	var consumer kernel.TCB
	r.task(&consumer, 0, func() {
		out := make([]byte, 1)
		for {
			r.k.QueueRemove(&q, out)
			got, gotAt = out[0], r.k.Ticks()
			received++
		}
	})
	const line = 7
	if !r.k.InsertIRQ(line, func() { r.k.QueueInsert(&q, []byte{42}) }) {
		t.Fatal("InsertIRQ failed")
	}
	r.boot()
	r.cpu.Advance(1)
	if consumer.State() != kernel.TaskBlocked {
		t.Fatalf("consumer state = %s, want blocked on empty queue", consumer.State())
	}

	before := r.k.Ticks()
	r.cpu.Raise(line)
	r.cpu.Settle()
	if received != 1 || got != 42 {
		t.Fatalf("received=%d got=%d", received, got)
	}
	if gotAt != before {
		t.Fatalf("consumer ran at tick %d, want %d", gotAt, before)
	}
	if st := r.cpu.Stats(); st.IRQs != 1 {
		t.Fatalf("Stats().IRQs = %d, want 1", st.IRQs)
	}
}

func TestDisabledLineIsIgnored(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	ran := 0
	var a kernel.TCB
	r.task(&a, 0, func() { sleepForever(r.k) })
	r.k.InsertIRQ(3, func() { ran++ })
	r.k.RemoveIRQ(3)
	r.boot()

	r.cpu.Raise(3)
	r.cpu.Settle()
	if ran != 0 {
		t.Fatal("handler ran on a disabled line")
	}
}

func TestFatalErrorHaltsCore(t *testing.T) {
	r := newRig(t, kernel.Hooks{})
	r.run()
	r.cpu.Tick()

	err := r.wait()
	if !errors.Is(err, sim.ErrHalted) || !errors.Is(err, kernel.ErrNoTaskAdded) {
		t.Fatalf("Run() err = %v, want halt on no task added", err)
	}
	if r.k.State() != kernel.StateError {
		t.Fatalf("State() = %s", r.k.State())
	}
}

func TestReturningTaskRunsHookThenHalts(t *testing.T) {
	returned := 0
	r := newRig(t, kernel.Hooks{Return: func() { returned++ }})

	var a kernel.TCB
	r.task(&a, 0, func() {})
	r.boot()
	r.cpu.Tick()

	if err := r.wait(); !errors.Is(err, sim.ErrHalted) {
		t.Fatalf("Run() err = %v, want ErrHalted", err)
	}
	if returned != 1 {
		t.Fatalf("return hook ran %d times, want 1", returned)
	}
}

func TestStopEndsRun(t *testing.T) {
	r := newRig(t, kernel.Hooks{})
	var a kernel.TCB
	r.task(&a, 0, func() { sleepForever(r.k) })
	r.boot()
	r.cpu.Advance(3)

	r.cpu.Stop()
	if err := r.wait(); err != nil {
		t.Fatalf("Run() err = %v, want nil after Stop", err)
	}
}

func TestTaskPanicHaltsCore(t *testing.T) {
	r := newRig(t, kernel.Hooks{})

	var a kernel.TCB
	r.task(&a, 0, func() {
		r.k.Delay(2)
		panic("bad sensor")
	})
	r.boot()
	r.cpu.Advance(3)

	err := r.wait()
	var pe *sim.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() err = %v, want PanicError", err)
	}
	if pe.Task != a.ID() || pe.Value != "bad sensor" || len(pe.Stack) == 0 {
		t.Fatalf("PanicError = task %d value %v, stack %d bytes", pe.Task, pe.Value, len(pe.Stack))
	}
	if !errors.Is(err, sim.ErrHalted) {
		t.Fatalf("Run() err = %v, want ErrHalted", err)
	}
}
