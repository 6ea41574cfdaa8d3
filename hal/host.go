//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// HostConfig describes the simulated board.
type HostConfig struct {
	// TickHz is the rate of the Time tick stream. Zero means 1000.
	TickHz int
	// Log receives log lines. Nil means stdout.
	Log io.Writer
	// Serial receives everything written to the board UART. Nil discards.
	Serial io.Writer
	// Script drives the buttons once the board is running.
	Script []ScriptStep
	// TTY toggles buttons from key presses on the controlling terminal.
	TTY bool
	// LEDLog logs every LED change.
	LEDLog bool
}

var ledNames = [NumLEDs]string{"green", "red", "yellow", "blue"}

type hostHAL struct {
	cfg     HostConfig
	logger  *hostLogger
	leds    [NumLEDs]GPIOPin
	gpio    GPIO
	buttons *buttonBank
	fb      *hostFramebuffer
	t       *hostTime
	serial  Serial
}

// New returns a host HAL with default settings.
func New() HAL {
	return NewHost(HostConfig{})
}

// NewHost returns a host HAL.
func NewHost(cfg HostConfig) HAL {
	return newHost(cfg)
}

func newHost(cfg HostConfig) *hostHAL {
	if cfg.TickHz <= 0 {
		cfg.TickHz = 1000
	}
	if cfg.Log == nil {
		cfg.Log = os.Stdout
	}
	if cfg.Serial == nil {
		cfg.Serial = io.Discard
	}

	logger := &hostLogger{w: cfg.Log}
	buttons := newButtonBank()

	h := &hostHAL{
		cfg:     cfg,
		logger:  logger,
		buttons: buttons,
		fb:      newHostFramebuffer(320, 240),
		t:       newHostTime(cfg.TickHz),
		serial:  &hostSerial{w: cfg.Serial},
	}
	pins := make([]GPIOPin, 0, PinCount)
	for i := range h.leds {
		h.leds[i] = newLEDPin("LED_"+strings.ToUpper(ledNames[i]), &hostLED{name: ledNames[i], logger: logger, verbose: cfg.LEDLog})
		pins = append(pins, h.leds[i])
	}
	for _, p := range buttons.pins {
		pins = append(pins, p)
	}
	h.gpio = newVirtualGPIO(pins)
	return h
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Buttons() Buttons { return h.buttons }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Time() Time       { return h.t }

// startInputs feeds the buttons from the script and the terminal until ctx
// is done.
func (h *hostHAL) startInputs(ctx context.Context) {
	if len(h.cfg.Script) > 0 {
		go func() {
			if err := h.buttons.play(ctx, h.cfg.Script, nil); err != nil && ctx.Err() == nil {
				h.logger.WriteLineString("hal: script: " + err.Error())
			}
		}()
	}
	if h.cfg.TTY {
		go func() {
			if err := readTTY(ctx, h.buttons, h.logger); err != nil {
				h.logger.WriteLineString("hal: " + err.Error())
			}
		}()
	}
}

func (h *hostHAL) ledLevel(i int) bool {
	level, _ := h.leds[i].Read()
	return level
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu      sync.Mutex
	name    string
	on      bool
	verbose bool
	logger  *hostLogger
}

func (l *hostLED) High() { l.set(true) }
func (l *hostLED) Low()  { l.set(false) }

func (l *hostLED) set(on bool) {
	l.mu.Lock()
	changed := l.on != on
	l.on = on
	l.mu.Unlock()
	if changed && l.verbose {
		state := "off"
		if on {
			state = "on"
		}
		l.logger.WriteLineString("led: " + l.name + " " + state)
	}
}
