//go:build !tinygo && cgo

package hal

import (
	"context"
	"image/color"

	"ember/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const boardBarHeight = 40

var ledColors = [NumLEDs]color.RGBA{
	{R: 0x20, G: 0xE0, B: 0x40, A: 0xFF},
	{R: 0xF0, G: 0x20, B: 0x20, A: 0xFF},
	{R: 0xF0, G: 0xD0, B: 0x20, A: 0xFF},
	{R: 0x30, G: 0x60, B: 0xF0, A: 0xFF},
}

// RunWindow opens the desktop board: LED lamps and buttons on top, the
// console framebuffer below. Keys 1 and 2 are the buttons. It blocks until
// the window closes.
func RunWindow(newApp func(HAL) func() error, cfg HostConfig) error {
	h := newHost(cfg)
	step := newApp(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.startInputs(ctx)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("Ember (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, (h.fb.height+boardBarHeight)*2)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type hostGame struct {
	h     *hostHAL
	pix   []byte
	seq   uint64
	fbImg *ebiten.Image
	step  func() error
}

func (g *hostGame) Update() error {
	pollButtons(g.h.buttons)
	g.h.t.step()
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.fbImg == nil {
		g.pix = make([]byte, fb.width*fb.height*4)
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	if seq := fb.snapshotRGBA(g.pix, g.seq); seq != g.seq {
		g.seq = seq
		g.fbImg.WritePixels(g.pix)
	}

	screen.Fill(color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xFF})
	for i := 0; i < NumLEDs; i++ {
		c := ledColors[i]
		if !g.h.ledLevel(i) {
			c = color.RGBA{R: c.R / 5, G: c.G / 5, B: c.B / 5, A: 0xFF}
		}
		vector.DrawFilledCircle(screen, float32(24+i*36), boardBarHeight/2, 12, c, true)
	}
	for i := 0; i < NumButtons; i++ {
		x := float32(fb.width - 100 + i*48)
		c := color.RGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xFF}
		if g.h.buttons.pressed(i) {
			c = color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
		}
		vector.DrawFilledRect(screen, x, 8, 36, 24, c, false)
		ebitenutil.DebugPrintAt(screen, buttonName(i), int(x)+4, 12)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(0, boardBarHeight)
	screen.DrawImage(g.fbImg, op)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height + boardBarHeight
}
