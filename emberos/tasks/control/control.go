// Package control runs the two-button sequence task. Button edges come in
// on the event queue; every finished sequence produces an LED command and a
// notice.
package control

import (
	"ember/emberos/proto"
	"ember/kernel"
)

type Task struct {
	k       *kernel.Kernel
	tcb     kernel.TCB
	events  *kernel.Queue
	leds    *kernel.Queue
	notices *kernel.Queue
	m       Machine
	done    uint32
}

func New(k *kernel.Kernel, events, leds, notices *kernel.Queue) *Task {
	return &Task{k: k, events: events, leds: leds, notices: notices}
}

func (t *Task) Start(priority uint8) error {
	return t.k.InitTask(&t.tcb, t.run, priority)
}

func (t *Task) TCB() *kernel.TCB { return &t.tcb }

// Sequences returns how many sequences have completed.
func (t *Task) Sequences() uint32 { return t.done }

func (t *Task) run() {
	var buf [proto.EdgeSize]byte
	for {
		t.k.QueueRemove(t.events, buf[:])
		e, ok := proto.DecodeEdgePayload(buf[:])
		if !ok {
			continue
		}
		seq, ok := t.m.Step(e, t.k.Ticks())
		if !ok {
			continue
		}
		t.done++
		t.k.QueueInsert(t.leds, proto.LEDCmdPayload(seq.LED, seq.T1+seq.T2))
		t.k.QueueInsert(t.notices, proto.NoticePayload(seq.LED, seq.T1, seq.T2))
	}
}

// EdgeHandler returns an interrupt handler that posts e to the event queue.
// A full queue drops the edge.
func EdgeHandler(k *kernel.Kernel, events *kernel.Queue, e proto.ButtonEdge) func() {
	elem := proto.EdgePayload(e)
	return func() {
		k.QueueInsert(events, elem)
	}
}
