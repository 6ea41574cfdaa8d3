package hal

import "sync"

// buttonBank turns button level changes into edge events. Pins are active
// low: a pressed button reads false.
type buttonBank struct {
	mu   sync.Mutex
	pins [NumButtons]*virtualPin
	ch   chan ButtonEvent
}

func newButtonBank() *buttonBank {
	b := &buttonBank{ch: make(chan ButtonEvent, 32)}
	for i := range b.pins {
		b.pins[i] = newButtonPin(buttonName(i))
	}
	return b
}

func buttonName(i int) string {
	return "TEC" + string(rune('1'+i))
}

func (b *buttonBank) Events() <-chan ButtonEvent { return b.ch }

// set moves button i to pressed and emits an edge if the level changed.
// Edges are dropped when nobody drains the channel.
func (b *buttonBank) set(i int, pressed bool) bool {
	if i < 0 || i >= NumButtons {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.pins[i].drive(!pressed) {
		return false
	}
	select {
	case b.ch <- ButtonEvent{Button: i, Pressed: pressed}:
	default:
	}
	return true
}

// toggle flips button i, for inputs that only deliver key presses.
func (b *buttonBank) toggle(i int) {
	if i < 0 || i >= NumButtons {
		return
	}
	level, _ := b.pins[i].Read()
	b.set(i, level)
}

func (b *buttonBank) pressed(i int) bool {
	if i < 0 || i >= NumButtons {
		return false
	}
	level, _ := b.pins[i].Read()
	return !level
}
