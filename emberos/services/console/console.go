// Package console mirrors log lines onto the board display through a
// tinyterm terminal.
package console

import (
	"sync"

	"ember/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Font is the terminal font. FontHeight and FontOffset are its line pitch
// and baseline.
var Font tinyfont.Fonter = &proggy.TinySZ8pt7b

const (
	FontHeight = 10
	FontOffset = 6
)

// Console is a hal.Logger that forwards every line to next and draws it on
// the display. With no display it only forwards.
type Console struct {
	next hal.Logger

	mu    sync.Mutex
	fb    hal.Framebuffer
	s     *Surface
	t     *tinyterm.Terminal
	lines int
}

// New returns a console over disp. Either argument may be nil.
func New(next hal.Logger, disp hal.Display) *Console {
	c := &Console{next: next}
	if disp != nil {
		c.fb = disp.Framebuffer()
	}
	if c.fb != nil {
		c.s = NewSurface(c.fb)
		c.reset()
	}
	return c
}

func (c *Console) reset() {
	c.t = tinyterm.NewTerminal(c.s)
	c.t.Configure(&tinyterm.Config{
		Font:              Font,
		FontHeight:        FontHeight,
		FontOffset:        FontOffset,
		UseSoftwareScroll: true,
	})
	c.fb.ClearRGB(0, 0, 0)
	_ = c.fb.Present()
	c.lines = 0
}

func (c *Console) WriteLineString(s string) {
	if c.next != nil {
		c.next.WriteLineString(s)
	}
	c.draw([]byte(s))
}

func (c *Console) WriteLineBytes(b []byte) {
	if c.next != nil {
		c.next.WriteLineBytes(b)
	}
	c.draw(b)
}

func (c *Console) draw(b []byte) {
	if c.t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lines > 0 {
		_, _ = c.t.Write([]byte("\r\n"))
	}
	_, _ = c.t.Write(b)
	c.t.Display()
	c.lines++
}

// Clear blanks the display and homes the cursor.
func (c *Console) Clear() {
	if c.t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Lines returns how many lines were drawn since the last Clear.
func (c *Console) Lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}
