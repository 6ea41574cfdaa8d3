package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Serial is a raw byte stream, usually a UART. Trace frames go out here.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Time provides a base tick stream.
//
// Each value is a sequence number; the period is set when the HAL is built.
type Time interface {
	Ticks() <-chan uint64
}

// Logical pins every board exposes through GPIO.
const (
	PinLEDGreen = iota
	PinLEDRed
	PinLEDYellow
	PinLEDBlue
	PinButton1
	PinButton2
	PinCount
)

// NumLEDs and NumButtons size the pin groups above.
const (
	NumLEDs    = PinButton1
	NumButtons = PinCount - PinButton1
)

// ButtonEvent is one edge on a push button. Buttons are numbered from 0.
type ButtonEvent struct {
	Button  int
	Pressed bool
}

// Buttons reports push button edges.
type Buttons interface {
	Events() <-chan ButtonEvent
}

// HAL provides the only contact point between the OS and the outside world.
//
// Display returns nil on boards without a screen.
type HAL interface {
	Logger() Logger
	GPIO() GPIO
	Buttons() Buttons
	Serial() Serial
	Display() Display
	Time() Time
}
