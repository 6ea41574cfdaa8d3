// Package notify runs the UART notification task: it reports every finished
// button sequence as a few log lines.
package notify

import (
	"fmt"

	"ember/emberos/proto"
	"ember/hal"
	"ember/kernel"
)

type Task struct {
	k       *kernel.Kernel
	tcb     kernel.TCB
	notices *kernel.Queue
	log     hal.Logger
	sent    uint32
}

func New(k *kernel.Kernel, notices *kernel.Queue, log hal.Logger) *Task {
	return &Task{k: k, notices: notices, log: log}
}

func (t *Task) Start(priority uint8) error {
	return t.k.InitTask(&t.tcb, t.run, priority)
}

func (t *Task) TCB() *kernel.TCB { return &t.tcb }

// Sent returns how many notices have been written.
func (t *Task) Sent() uint32 { return t.sent }

func (t *Task) run() {
	var buf [proto.NoticeSize]byte
	for {
		t.k.QueueRemove(t.notices, buf[:])
		led, t1, t2, ok := proto.DecodeNoticePayload(buf[:])
		if !ok {
			continue
		}
		if t.log != nil {
			for _, line := range Format(led, t1, t2, t.k.TickHz()) {
				t.log.WriteLineString(line)
			}
		}
		t.sent++
	}
}

// Format renders one notice. Times are converted from ticks to
// milliseconds at hz.
func Format(led proto.LED, t1, t2, hz uint32) []string {
	ms := func(ticks uint32) uint64 {
		if hz == 0 {
			return uint64(ticks)
		}
		return uint64(ticks) * 1000 / uint64(hz)
	}
	return []string{
		fmt.Sprintf("LED %s on", led),
		fmt.Sprintf("\ton time: %d ms", ms(t1+t2)),
		fmt.Sprintf("\tbetween falling edges: %d ms", ms(t1)),
		fmt.Sprintf("\tbetween rising edges: %d ms", ms(t2)),
	}
}
