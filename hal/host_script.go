//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/shlex"
)

// ScriptStep is one scripted button action. A step with Wait > 0 only waits.
type ScriptStep struct {
	Button  int
	Pressed bool
	Wait    time.Duration
}

// ParseScript reads a button script. Words are shell-quoted and '#' starts a
// comment:
//
//	press 1      press button 1
//	release 1    release button 1
//	wait 250ms   sleep
//	click 2 80ms press, hold, release
//
// Buttons are numbered from 1 as printed on the board.
func ParseScript(src string) ([]ScriptStep, error) {
	words, err := shlex.Split(src)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	var steps []ScriptStep
	arg := func(i int, verb string) (string, error) {
		if i >= len(words) {
			return "", fmt.Errorf("script: %s: missing argument", verb)
		}
		return words[i], nil
	}
	button := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > NumButtons {
			return 0, fmt.Errorf("script: bad button %q", s)
		}
		return n - 1, nil
	}
	duration := func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("script: bad duration %q", s)
		}
		return d, nil
	}

	for i := 0; i < len(words); i++ {
		verb := words[i]
		switch verb {
		case "press", "release":
			s, err := arg(i+1, verb)
			if err != nil {
				return nil, err
			}
			n, err := button(s)
			if err != nil {
				return nil, err
			}
			steps = append(steps, ScriptStep{Button: n, Pressed: verb == "press"})
			i++
		case "wait":
			s, err := arg(i+1, verb)
			if err != nil {
				return nil, err
			}
			d, err := duration(s)
			if err != nil {
				return nil, err
			}
			steps = append(steps, ScriptStep{Wait: d})
			i++
		case "click":
			s, err := arg(i+1, verb)
			if err != nil {
				return nil, err
			}
			n, err := button(s)
			if err != nil {
				return nil, err
			}
			s, err = arg(i+2, verb)
			if err != nil {
				return nil, err
			}
			d, err := duration(s)
			if err != nil {
				return nil, err
			}
			steps = append(steps,
				ScriptStep{Button: n, Pressed: true},
				ScriptStep{Wait: d},
				ScriptStep{Button: n},
			)
			i += 2
		default:
			return nil, fmt.Errorf("script: unknown command %q", verb)
		}
	}
	return steps, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// play drives the buttons through steps.
func (b *buttonBank) play(ctx context.Context, steps []ScriptStep, sleep func(context.Context, time.Duration) error) error {
	if sleep == nil {
		sleep = sleepContext
	}
	for _, st := range steps {
		if st.Wait > 0 {
			if err := sleep(ctx, st.Wait); err != nil {
				return err
			}
			continue
		}
		b.set(st.Button, st.Pressed)
	}
	return nil
}
