package control

import "ember/emberos/proto"

// State is where the two-button sequence currently stands.
type State uint8

const (
	WaitAnyDown State = iota
	WaitButton1Down
	WaitButton2Down
	WaitAnyUp
	WaitButton1Up
	WaitButton2Up
)

func (s State) String() string {
	switch s {
	case WaitAnyDown:
		return "wait any down"
	case WaitButton1Down:
		return "wait tec1 down"
	case WaitButton2Down:
		return "wait tec2 down"
	case WaitAnyUp:
		return "wait any up"
	case WaitButton1Up:
		return "wait tec1 up"
	case WaitButton2Up:
		return "wait tec2 up"
	default:
		return "unknown"
	}
}

// Sequence is one completed press of both buttons. T1 is the time between
// the two falling edges and T2 the time between the two rising edges, in
// ticks.
type Sequence struct {
	LED proto.LED
	T1  uint32
	T2  uint32
}

// Machine tracks both buttons through a press-both, release-both sequence.
// The zero value waits for the first press.
type Machine struct {
	state     State
	button1Dn bool
	button1Up bool
	downAt    uint32
	upAt      uint32
	t1        uint32
}

func (m *Machine) State() State { return m.state }

// Step feeds one edge observed at tick now. It reports a Sequence when the
// second button is released.
//
// The LED follows from which button went down first and which came up
// first: 1 then 1 is green, 1 then 2 red, 2 then 1 yellow, 2 then 2 blue.
// Releasing the only pressed button restarts the sequence; pressing a
// button again while waiting for the other release is ignored.
func (m *Machine) Step(e proto.ButtonEdge, now uint32) (Sequence, bool) {
	switch m.state {
	case WaitAnyDown:
		switch e {
		case proto.Button1Down:
			m.button1Dn = true
			m.state = WaitButton2Down
			m.downAt = now
		case proto.Button2Down:
			m.button1Dn = false
			m.state = WaitButton1Down
			m.downAt = now
		}
	case WaitButton1Down:
		switch e {
		case proto.Button1Down:
			m.state = WaitAnyUp
			m.t1 = now - m.downAt
		case proto.Button2Up:
			m.state = WaitAnyDown
		}
	case WaitButton2Down:
		switch e {
		case proto.Button2Down:
			m.state = WaitAnyUp
			m.t1 = now - m.downAt
		case proto.Button1Up:
			m.state = WaitAnyDown
		}
	case WaitAnyUp:
		switch e {
		case proto.Button1Up:
			m.button1Up = true
			m.state = WaitButton2Up
			m.upAt = now
		case proto.Button2Up:
			m.button1Up = false
			m.state = WaitButton1Up
			m.upAt = now
		}
	case WaitButton1Up:
		if e == proto.Button1Up {
			m.state = WaitAnyDown
			return m.done(now), true
		}
	case WaitButton2Up:
		if e == proto.Button2Up {
			m.state = WaitAnyDown
			return m.done(now), true
		}
	default:
		m.state = WaitAnyDown
	}
	return Sequence{}, false
}

func (m *Machine) done(now uint32) Sequence {
	seq := Sequence{T1: m.t1, T2: now - m.upAt}
	switch {
	case m.button1Dn && m.button1Up:
		seq.LED = proto.LEDGreen
	case m.button1Dn:
		seq.LED = proto.LEDRed
	case m.button1Up:
		seq.LED = proto.LEDYellow
	default:
		seq.LED = proto.LEDBlue
	}
	return seq
}
