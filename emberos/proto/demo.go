// Package proto defines the byte layouts that cross queues and wires: the
// fixed-size queue elements of the demo tasks and the trace frames sent to
// the host monitor.
package proto

import "encoding/binary"

// ButtonEdge is one element of the event queue, inserted by the button
// interrupt handlers.
type ButtonEdge uint8

const (
	Button1Down ButtonEdge = iota
	Button1Up
	Button2Down
	Button2Up
)

func (e ButtonEdge) String() string {
	switch e {
	case Button1Down:
		return "tec1_down"
	case Button1Up:
		return "tec1_up"
	case Button2Down:
		return "tec2_down"
	case Button2Up:
		return "tec2_up"
	default:
		return "unknown"
	}
}

// Edge maps a button number (from 0) and direction to its event.
func Edge(button int, pressed bool) ButtonEdge {
	e := ButtonEdge(button * 2)
	if !pressed {
		e++
	}
	return e
}

// LED identifies one of the board LEDs, in GPIO pin order.
type LED uint8

const (
	LEDGreen LED = iota
	LEDRed
	LEDYellow
	LEDBlue
)

func (l LED) String() string {
	switch l {
	case LEDGreen:
		return "green"
	case LEDRed:
		return "red"
	case LEDYellow:
		return "yellow"
	case LEDBlue:
		return "blue"
	default:
		return "unknown"
	}
}

// Element sizes of the demo queues.
const (
	EdgeSize     = 1
	LEDCmdSize   = 8
	NoticeSize   = 12
	maxElemBytes = NoticeSize
)

// EdgePayload encodes an event queue element.
func EdgePayload(e ButtonEdge) []byte {
	return []byte{byte(e)}
}

func DecodeEdgePayload(b []byte) (ButtonEdge, bool) {
	if len(b) < EdgeSize {
		return 0, false
	}
	return ButtonEdge(b[0]), true
}

// LEDCmdPayload encodes an LED queue element.
//
// Layout (little-endian):
//   - u8: led
//   - 3 bytes: zero
//   - u32: on time in ticks
func LEDCmdPayload(led LED, ticks uint32) []byte {
	buf := make([]byte, LEDCmdSize)
	buf[0] = byte(led)
	binary.LittleEndian.PutUint32(buf[4:8], ticks)
	return buf
}

func DecodeLEDCmdPayload(b []byte) (led LED, ticks uint32, ok bool) {
	if len(b) < LEDCmdSize {
		return 0, 0, false
	}
	return LED(b[0]), binary.LittleEndian.Uint32(b[4:8]), true
}

// NoticePayload encodes a UART notification queue element.
//
// Layout (little-endian):
//   - u8: led
//   - 3 bytes: zero
//   - u32: t1, first press to second press, in ticks
//   - u32: t2, first release to second release, in ticks
func NoticePayload(led LED, t1, t2 uint32) []byte {
	buf := make([]byte, NoticeSize)
	buf[0] = byte(led)
	binary.LittleEndian.PutUint32(buf[4:8], t1)
	binary.LittleEndian.PutUint32(buf[8:12], t2)
	return buf
}

func DecodeNoticePayload(b []byte) (led LED, t1, t2 uint32, ok bool) {
	if len(b) < NoticeSize {
		return 0, 0, 0, false
	}
	return LED(b[0]), binary.LittleEndian.Uint32(b[4:8]), binary.LittleEndian.Uint32(b[8:12]), true
}
