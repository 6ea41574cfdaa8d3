package app

import (
	"fmt"

	"ember/internal/buildinfo"
	"ember/kernel"

	"github.com/inhies/go-bytesize"
)

func size(n int) string {
	return bytesize.New(float64(n)).String()
}

// report is the boot banner: build, tick rate, the task table and the
// static memory used by stacks and queues.
func (s *System) report() []string {
	lines := []string{
		fmt.Sprintf("ember: %s, tick %d Hz", buildinfo.Short(), s.k.TickHz()),
	}

	// Idle has its own stack.
	stacks := (s.k.TaskCount() + 1) * kernel.StackBytes
	lines = append(lines, fmt.Sprintf("ember: %d/%d tasks, stacks %s", s.k.TaskCount(), kernel.MaxTasks, size(stacks)))
	s.k.EachTask(func(t *kernel.TCB) {
		lines = append(lines, fmt.Sprintf("ember:   task %d prio %d stack 0x%08x", t.ID(), t.Priority(), t.StackBase()))
	})

	queues := 0
	for _, q := range []struct {
		name string
		q    *kernel.Queue
	}{
		{"events", &s.events},
		{"leds", &s.ledQ},
		{"notices", &s.notices},
	} {
		queues += kernel.QueueHeapSize
		lines = append(lines, fmt.Sprintf("ember:   queue %s %d x %dB", q.name, q.q.Cap(), q.q.ElementSize()))
	}
	lines = append(lines, fmt.Sprintf("ember: queues %s", size(queues)))
	if s.tracer != nil {
		lines = append(lines, "ember: trace on serial")
	}
	return lines
}
