package app

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"ember/emberos/services/console"
	"ember/hal"
	"ember/kernel"
	"ember/port/sim"

	"tinygo.org/x/tinyfont"
)

// fatalLines describes why the core halted.
func fatalLines(err error) []string {
	var fe *kernel.FatalError
	var pe *sim.PanicError
	switch {
	case errors.As(err, &fe):
		return []string{
			"Ember halted:",
			fmt.Sprintf("error: %s", fe.Code.String()),
			fmt.Sprintf("op: %s", fe.Op),
			fmt.Sprintf("task: %s", taskName(fe.Task)),
		}
	case errors.As(err, &pe):
		lines := []string{
			"Ember panic:",
			fmt.Sprintf("task: %s", taskName(pe.Task)),
			fmt.Sprintf("panic: %v", pe.Value),
		}
		if len(pe.Stack) == 0 {
			return append(lines, "stack: unavailable")
		}
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(pe.Stack), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
		return lines
	default:
		return []string{"Ember halted:", err.Error()}
	}
}

func taskName(id uint8) string {
	if id == kernel.IdleTaskID {
		return "idle"
	}
	return fmt.Sprintf("%d", id)
}

// showFatal logs the halt reason and paints it on the display, black on
// white, wrapped to the screen width.
func showFatal(h hal.HAL, log hal.Logger, err error) {
	lines := fatalLines(err)
	if log != nil {
		for _, line := range lines {
			log.WriteLineString("ember: " + line)
		}
	}

	disp := h.Display()
	if disp == nil {
		return
	}
	fb := disp.Framebuffer()
	if fb == nil {
		return
	}

	fb.ClearRGB(255, 255, 255)

	font := console.Font
	fontHeight, fontOffset := int16(console.FontHeight), int16(console.FontOffset)
	_, outboxWidth := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outboxWidth)
	if fontWidth <= 0 {
		_ = fb.Present()
		return
	}

	d := console.NewSurface(fb)
	fg := color.RGBA{A: 255}

	y := int16(0)
	maxH := int16(fb.Height())
	cols := int16(fb.Width()) / fontWidth
	if cols <= 0 {
		cols = 1
	}

	for _, line := range lines {
		for len(line) > 0 {
			if y+fontHeight > maxH {
				_ = fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(d, font, fontWidth, fontOffset, 0, y, chunk, fg)
			y += fontHeight
			line = strings.TrimLeft(rest, " \t")
		}
	}
	_ = fb.Present()
}

func drawTextLine(d *console.Surface, font tinyfont.Fonter, fontWidth, fontOffset, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		if r == '\t' {
			r = ' '
		}
		tinyfont.DrawChar(d, font, x, y0+fontOffset, r, fg)
		x += fontWidth
	}
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
