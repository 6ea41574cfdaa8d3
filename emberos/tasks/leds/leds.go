// Package leds runs the LED task: each command on its queue lights one LED
// for a number of ticks.
package leds

import (
	"ember/emberos/proto"
	"ember/hal"
	"ember/kernel"
)

type Task struct {
	k    *kernel.Kernel
	tcb  kernel.TCB
	cmds *kernel.Queue
	pins [hal.NumLEDs]hal.GPIOPin
	lit  uint32
}

// New returns the task driving the LED pins of gpio. Missing pins are
// skipped.
func New(k *kernel.Kernel, cmds *kernel.Queue, gpio hal.GPIO) *Task {
	t := &Task{k: k, cmds: cmds}
	if gpio == nil {
		return t
	}
	for i := range t.pins {
		p := gpio.Pin(hal.PinLEDGreen + i)
		if p == nil {
			continue
		}
		if err := p.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
			continue
		}
		_ = p.Write(false)
		t.pins[i] = p
	}
	return t
}

func (t *Task) Start(priority uint8) error {
	return t.k.InitTask(&t.tcb, t.run, priority)
}

func (t *Task) TCB() *kernel.TCB { return &t.tcb }

// Lit returns how many commands have been carried out.
func (t *Task) Lit() uint32 { return t.lit }

func (t *Task) run() {
	var buf [proto.LEDCmdSize]byte
	for {
		t.k.QueueRemove(t.cmds, buf[:])
		led, ticks, ok := proto.DecodeLEDCmdPayload(buf[:])
		if !ok || int(led) >= len(t.pins) {
			continue
		}
		p := t.pins[led]
		if p != nil {
			_ = p.Write(true)
		}
		t.k.Delay(ticks)
		if p != nil {
			_ = p.Write(false)
		}
		t.lit++
	}
}
