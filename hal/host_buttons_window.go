//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var buttonKeys = [NumButtons]ebiten.Key{ebiten.KeyDigit1, ebiten.KeyDigit2}

// pollButtons follows keys 1 and 2: held key, held button.
func pollButtons(b *buttonBank) {
	for i, key := range buttonKeys {
		if inpututil.IsKeyJustPressed(key) {
			b.set(i, true)
		}
		if inpututil.IsKeyJustReleased(key) {
			b.set(i, false)
		}
	}
}
