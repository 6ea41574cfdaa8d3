//go:build !tinygo

package hal

import (
	"context"
	"fmt"

	tty "github.com/mattn/go-tty"
)

// readTTY toggles button 1 or 2 when the matching key is typed.
func readTTY(ctx context.Context, b *buttonBank, l Logger) error {
	t, err := tty.Open()
	if err != nil {
		return fmt.Errorf("open tty: %w", err)
	}
	go func() {
		<-ctx.Done()
		t.Close()
	}()

	l.WriteLineString("hal: keys 1 and 2 toggle the buttons")
	for {
		r, err := t.ReadRune()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read tty: %w", err)
		}
		switch r {
		case '1':
			b.toggle(0)
		case '2':
			b.toggle(1)
		}
	}
}
