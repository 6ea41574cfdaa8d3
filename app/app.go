// Package app wires the kernel, the simulated core and the demo tasks to a
// board.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"ember/emberos/proto"
	"ember/emberos/services/console"
	"ember/emberos/services/tracer"
	"ember/emberos/tasks/control"
	"ember/emberos/tasks/leds"
	"ember/emberos/tasks/notify"
	"ember/hal"
	"ember/kernel"
	"ember/port/sim"
)

// System is one booted board.
type System struct {
	h   hal.HAL
	cfg Config
	log hal.Logger

	cpu *sim.CPU
	k   *kernel.Kernel

	events  kernel.Queue
	ledQ    kernel.Queue
	notices kernel.Queue

	control *control.Task
	leds    *leds.Task
	notify  *notify.Task
	tracer  *tracer.Service

	running atomic.Bool
}

// NewSystem registers every task and interrupt handler. Nothing runs until
// Run.
func NewSystem(h hal.HAL, cfg Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &System{h: h, cfg: cfg, log: h.Logger()}
	if cfg.Console {
		s.log = console.New(h.Logger(), h.Display())
	}

	s.cpu = sim.New()
	kcfg := kernel.Config{
		TickHz: cfg.TickHz,
		Hooks: kernel.Hooks{
			Error:  s.onFatal,
			Return: s.onReturn,
		},
	}
	if cfg.Trace.Enabled {
		if ser := h.Serial(); ser != nil {
			s.tracer = tracer.New(ser)
			kcfg.Tracer = s.tracer
		}
	}
	s.k = kernel.New(s.cpu, kcfg)
	s.cpu.Bind(s.k)

	for _, q := range []struct {
		q    *kernel.Queue
		size uint16
	}{
		{&s.events, proto.EdgeSize},
		{&s.ledQ, proto.LEDCmdSize},
		{&s.notices, proto.NoticeSize},
	} {
		if err := s.k.QueueInit(q.q, q.size); err != nil {
			return nil, err
		}
	}

	s.control = control.New(s.k, &s.events, &s.ledQ, &s.notices)
	s.leds = leds.New(s.k, &s.ledQ, h.GPIO())
	s.notify = notify.New(s.k, &s.notices, s.log)

	if err := s.leds.Start(cfg.Priorities.LEDs); err != nil {
		return nil, fmt.Errorf("start leds task: %w", err)
	}
	if err := s.control.Start(cfg.Priorities.Control); err != nil {
		return nil, fmt.Errorf("start control task: %w", err)
	}
	if err := s.notify.Start(cfg.Priorities.Notify); err != nil {
		return nil, fmt.Errorf("start notify task: %w", err)
	}
	if s.tracer != nil {
		if err := s.tracer.Start(s.k, cfg.Priorities.Tracer, cfg.Trace.Period); err != nil {
			return nil, fmt.Errorf("start tracer task: %w", err)
		}
	}

	for b := 0; b < hal.NumButtons; b++ {
		for _, pressed := range []bool{true, false} {
			e := proto.Edge(b, pressed)
			if !s.k.InsertIRQ(int(e), control.EdgeHandler(s.k, &s.events, e)) {
				return nil, fmt.Errorf("attach %v handler to line %d", e, e)
			}
		}
	}
	return s, nil
}

func (s *System) onFatal(e *kernel.FatalError) {
	s.log.WriteLineString("ember: fatal: " + e.Error())
	// Before Run the error comes back to the caller instead.
	if s.running.Load() {
		s.cpu.Halt(e)
	}
}

func (s *System) onReturn() {
	s.log.WriteLineString(fmt.Sprintf("ember: task %d returned", s.k.Current().ID()))
}

// Run boots the kernel and blocks until ctx is done or the core halts. A
// halt is shown on the fatal screen and returned.
func (s *System) Run(ctx context.Context) error {
	for _, line := range s.report() {
		s.log.WriteLineString(line)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.k.Start()
	s.running.Store(true)
	go s.pumpTicks(ctx)
	go s.pumpButtons(ctx)

	err := s.cpu.Run(ctx)
	if errors.Is(err, sim.ErrHalted) {
		showFatal(s.h, s.h.Logger(), err)
	}
	return err
}

func (s *System) pumpTicks(ctx context.Context) {
	t := s.h.Time()
	if t == nil || t.Ticks() == nil {
		return
	}
	ch := t.Ticks()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.cpu.Tick()
		}
	}
}

func (s *System) pumpButtons(ctx context.Context) {
	b := s.h.Buttons()
	if b == nil || b.Events() == nil {
		return
	}
	ch := b.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.Button(ev)
		}
	}
}

// Button raises the interrupt line for one button edge.
func (s *System) Button(ev hal.ButtonEvent) {
	if ev.Button < 0 || ev.Button >= hal.NumButtons {
		return
	}
	s.cpu.Raise(int(proto.Edge(ev.Button, ev.Pressed)))
}

func (s *System) CPU() *sim.CPU          { return s.cpu }
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Sequences returns how many button sequences have completed.
func (s *System) Sequences() uint32 { return s.control.Sequences() }

// New initializes the system with the default config.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, DefaultConfig())
}

// NewWithConfig boots the system in the background and returns the host
// step function.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := NewSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	return func() error {
		if !cfg.ExitOnHalt {
			return nil
		}
		select {
		case err := <-done:
			if err == nil {
				err = errors.New("ember: core stopped")
			}
			return err
		default:
			return nil
		}
	}
}

// Run boots the system and blocks forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	s, err := NewSystem(h, DefaultConfig())
	if err != nil {
		if l := h.Logger(); l != nil {
			l.WriteLineString("ember: " + err.Error())
		}
		select {}
	}
	_ = s.Run(context.Background())
	select {}
}
