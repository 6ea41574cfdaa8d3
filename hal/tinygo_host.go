//go:build tinygo && !baremetal

package hal

import (
	"fmt"
	"runtime"
	"time"
)

type tinyGoHostHAL struct {
	logger  *tinyGoHostLogger
	gpio    GPIO
	buttons *buttonBank
	t       *tinyGoHostTime
}

// New returns a TinyGo-on-host HAL implementation.
//
// This is used by `tinygo run` targets like linux/wasm where there is no MCU
// pin mapping. LEDs log their changes; the buttons never move.
func New() HAL {
	l := &tinyGoHostLogger{}
	buttons := newButtonBank()
	pins := make([]GPIOPin, 0, PinCount)
	for i := 0; i < NumLEDs; i++ {
		pins = append(pins, newLEDPin(fmt.Sprintf("LED%d", i+1), &tinyGoHostLED{id: i, logger: l}))
	}
	for _, p := range buttons.pins {
		pins = append(pins, p)
	}
	return &tinyGoHostHAL{
		logger:  l,
		gpio:    newVirtualGPIO(pins),
		buttons: buttons,
		t:       newTinyGoHostTime(),
	}
}

func (h *tinyGoHostHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHostHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHostHAL) Buttons() Buttons { return h.buttons }
func (h *tinyGoHostHAL) Serial() Serial   { return nil }
func (h *tinyGoHostHAL) Display() Display { return nil }
func (h *tinyGoHostHAL) Time() Time       { return h.t }

type tinyGoHostTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoHostTime() *tinyGoHostTime {
	t := &tinyGoHostTime{ch: make(chan uint64, 16)}
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

func (t *tinyGoHostTime) Ticks() <-chan uint64 { return t.ch }

type tinyGoHostLogger struct{}

func (l *tinyGoHostLogger) WriteLineString(s string) {
	println(s)
}

func (l *tinyGoHostLogger) WriteLineBytes(b []byte) {
	println(string(b))
}

type tinyGoHostLED struct {
	id     int
	logger *tinyGoHostLogger
}

func (l *tinyGoHostLED) High() {
	l.logger.WriteLineString(fmt.Sprintf("led%d: HIGH (tinygo/%s)", l.id+1, runtime.GOOS))
}

func (l *tinyGoHostLED) Low() {
	l.logger.WriteLineString(fmt.Sprintf("led%d: LOW (tinygo/%s)", l.id+1, runtime.GOOS))
}
