package tinyterm

import "image/color"

// Select Graphic Rendition parameters.
const (
	SGRReset = 0
	SGRBold  = 1

	SGRFgBlack        = 30
	SGRFgRed          = 31
	SGRFgGreen        = 32
	SGRFgYellow       = 33
	SGRFgBlue         = 34
	SGRFgMagenta      = 35
	SGRFgCyan         = 36
	SGRFgWhite        = 37
	SGRSetFgColor     = 38
	SGRDefaultFgColor = 39

	SGRBgBlack        = 40
	SGRBgRed          = 41
	SGRBgGreen        = 42
	SGRBgYellow       = 43
	SGRBgBlue         = 44
	SGRBgMagenta      = 45
	SGRBgCyan         = 46
	SGRBgWhite        = 47
	SGRSetBgColor     = 48
	SGRDefaultBgColor = 49
)

// Color is an index into the 8 color terminal palette.
type Color uint8

const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

var palette = [...]color.RGBA{
	ColorBlack:   {0x00, 0x00, 0x00, 0xFF},
	ColorRed:     {0xCD, 0x00, 0x00, 0xFF},
	ColorGreen:   {0x00, 0xCD, 0x00, 0xFF},
	ColorYellow:  {0xCD, 0xCD, 0x00, 0xFF},
	ColorBlue:    {0x00, 0x00, 0xEE, 0xFF},
	ColorMagenta: {0xCD, 0x00, 0xCD, 0xFF},
	ColorCyan:    {0x00, 0xCD, 0xCD, 0xFF},
	ColorWhite:   {0xE5, 0xE5, 0xE5, 0xFF},
}

// RGBA returns the palette entry for c, white when out of range.
func (c Color) RGBA() color.RGBA {
	if int(c) >= len(palette) {
		return palette[ColorWhite]
	}
	return palette[c]
}

type sgrAttrs struct {
	attrs byte
	fgcol color.RGBA
	bgcol color.RGBA
}

func (a *sgrAttrs) reset() {
	a.attrs = 0
	a.fgcol = ColorWhite.RGBA()
	a.bgcol = ColorBlack.RGBA()
}

func (a *sgrAttrs) setFG(c Color) { a.fgcol = c.RGBA() }

func (a *sgrAttrs) setBG(c Color) { a.bgcol = c.RGBA() }
