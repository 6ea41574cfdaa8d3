package console

import (
	"image/color"

	"ember/hal"

	"tinygo.org/x/drivers"
)

// Surface draws into an RGB565 framebuffer. It satisfies the tinyterm and
// tinyfont display interfaces.
type Surface struct {
	fb hal.Framebuffer
}

// NewSurface wraps fb. A nil or non-RGB565 framebuffer makes every draw a
// no-op.
func NewSurface(fb hal.Framebuffer) *Surface {
	return &Surface{fb: fb}
}

func (d *Surface) ok() bool {
	return d.fb != nil && d.fb.Format() == hal.PixelFormatRGB565 && d.fb.Buffer() != nil
}

func (d *Surface) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *Surface) SetPixel(x, y int16, c color.RGBA) {
	if !d.ok() {
		return
	}
	buf := d.fb.Buffer()
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}

	pixel := rgb565From888(c.R, c.G, c.B)
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *Surface) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

func (d *Surface) ScrollUp(lines int16, bg color.RGBA) error {
	if !d.ok() || lines <= 0 {
		return nil
	}

	buf := d.fb.Buffer()
	w, h := d.fb.Width(), d.fb.Height()
	n := int(lines)
	if n >= h {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}

	stride := d.fb.StrideBytes()
	srcStart := n * stride
	if srcStart > len(buf) {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}
	dstLen := (h - n) * stride
	if srcStart+dstLen > len(buf) {
		dstLen = len(buf) - srcStart
	}
	copy(buf[:dstLen], buf[srcStart:srcStart+dstLen])

	return d.FillRectangle(0, int16(h-n), int16(w), int16(n), bg)
}

func (d *Surface) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if !d.ok() {
		return nil
	}
	buf := d.fb.Buffer()
	w, h := d.fb.Width(), d.fb.Height()

	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565From888(c.R, c.G, c.B)
	lo, hi := byte(pixel), byte(pixel>>8)

	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := py * stride
		for px := x0; px < x1; px++ {
			off := row + px*2
			if off < 0 || off+1 >= len(buf) {
				continue
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

// SetScroll is a no-op; the framebuffer has no hardware scroll.
func (d *Surface) SetScroll(line int16) {}

func (d *Surface) SetRotation(rotation drivers.Rotation) error { return nil }

func rgb565From888(r, g, b uint8) uint16 {
	return uint16((uint16(r>>3)&0x1F)<<11 | (uint16(g>>2)&0x3F)<<5 | (uint16(b>>3) & 0x1F))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
