//go:build tinygo && baremetal

package hal

import (
	"machine"
)

type tinyGoHAL struct {
	logger  *uartLogger
	gpio    GPIO
	buttons *pinButtons
	t       *tinyGoTime
	serial  *uartSerial
}

// New returns a Raspberry Pi Pico HAL.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1, shared by log lines and
// trace frames. LEDs green/red/yellow/blue on GP2-GP5, active high. Buttons
// on GP6 and GP7 to ground.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPins := [NumLEDs]machine.Pin{machine.GP2, machine.GP3, machine.GP4, machine.GP5}
	pins := make([]GPIOPin, 0, PinCount)
	for i, p := range ledPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pins = append(pins, newLEDPin("LED"+string(rune('1'+i)), &pinLED{pin: p}))
	}
	buttons := newPinButtons([NumButtons]machine.Pin{machine.GP6, machine.GP7})
	for i := range buttons.pins {
		pins = append(pins, buttons.pins[i])
	}

	return &tinyGoHAL{
		logger:  &uartLogger{uart: uart},
		gpio:    newVirtualGPIO(pins),
		buttons: buttons,
		t:       newTinyGoTime(),
		serial:  &uartSerial{uart: uart},
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHAL) Buttons() Buttons { return h.buttons }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Display() Display { return nil }
func (h *tinyGoHAL) Time() Time       { return h.t }
