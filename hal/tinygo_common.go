//go:build tinygo && baremetal

package hal

import (
	"fmt"
	"machine"
	"time"
)

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(1 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

type uartSerial struct {
	uart *machine.UART
}

func (s *uartSerial) Read(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Read(p)
}

func (s *uartSerial) Write(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Write(p)
}

// pinButtons reports edges from pin-change interrupts.
type pinButtons struct {
	pins [NumButtons]*buttonPin
	ch   chan ButtonEvent
}

func newPinButtons(pins [NumButtons]machine.Pin) *pinButtons {
	b := &pinButtons{ch: make(chan ButtonEvent, 16)}
	for i, p := range pins {
		i := i
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		b.pins[i] = &buttonPin{pin: p, name: buttonName(i)}
		p.SetInterrupt(machine.PinToggle, func(p machine.Pin) {
			select {
			case b.ch <- ButtonEvent{Button: i, Pressed: !p.Get()}:
			default:
			}
		})
	}
	return b
}

func (b *pinButtons) Events() <-chan ButtonEvent { return b.ch }

type buttonPin struct {
	pin  machine.Pin
	name string
}

func (p *buttonPin) Name() string   { return p.name }
func (p *buttonPin) Caps() GPIOCaps { return GPIOCapInput | GPIOCapPullUp }

func (p *buttonPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeInput || pull != GPIOPullUp {
		return fmt.Errorf("gpio: pin %s: only pulled-up input supported", p.name)
	}
	return nil
}

func (p *buttonPin) Read() (bool, error) { return p.pin.Get(), nil }

func (p *buttonPin) Write(_ bool) error {
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}
