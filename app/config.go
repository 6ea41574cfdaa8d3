package app

import (
	"fmt"
	"os"

	"ember/emberos/services/tracer"
	"ember/kernel"

	"gopkg.in/yaml.v2"
)

// Priorities are the kernel priorities of the application tasks, 0 highest.
type Priorities struct {
	Control uint8 `yaml:"control"`
	LEDs    uint8 `yaml:"leds"`
	Notify  uint8 `yaml:"notify"`
	Tracer  uint8 `yaml:"tracer"`
}

// TraceConfig controls the trace stream on the board serial port.
type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
	// Period is how often, in ticks, the drain task flushes frames.
	Period uint32 `yaml:"period"`
}

// Config is the board file. Zero fields keep their defaults.
type Config struct {
	TickHz     uint32      `yaml:"tick_hz"`
	Priorities Priorities  `yaml:"priorities"`
	Trace      TraceConfig `yaml:"trace"`
	// Console mirrors log lines on the display.
	Console bool `yaml:"console"`
	// Script is a button script for the host board, see hal.ParseScript.
	Script string `yaml:"script"`

	// ExitOnHalt makes the step function returned by NewWithConfig report
	// the halt error, which ends a headless run.
	ExitOnHalt bool `yaml:"-"`
}

// DefaultConfig returns the demo layout: LEDs highest, then control, then
// notifications, tracing last.
func DefaultConfig() Config {
	return Config{
		TickHz: kernel.DefaultTickHz,
		Priorities: Priorities{
			Control: 1,
			LEDs:    0,
			Notify:  2,
			Tracer:  kernel.MaxPriority,
		},
		Trace:   TraceConfig{Enabled: true, Period: tracer.DefaultPeriod},
		Console: true,
	}
}

// ParseConfig reads a YAML board file over the defaults. Unknown keys are
// an error.
func ParseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse board config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads the board file at path.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read board config %q: %w", path, err)
	}
	return ParseConfig(b)
}

// MaxTickHz bounds tick_hz so a host tick lasts at least a microsecond.
const MaxTickHz = 1_000_000

func (c Config) Validate() error {
	if c.TickHz == 0 {
		return fmt.Errorf("board config: tick_hz must be positive")
	}
	if c.TickHz > MaxTickHz {
		return fmt.Errorf("board config: tick_hz = %d, max %d", c.TickHz, MaxTickHz)
	}
	for _, p := range []struct {
		name string
		v    uint8
	}{
		{"control", c.Priorities.Control},
		{"leds", c.Priorities.LEDs},
		{"notify", c.Priorities.Notify},
		{"tracer", c.Priorities.Tracer},
	} {
		if p.v > kernel.MaxPriority {
			return fmt.Errorf("board config: priority %s = %d, max %d", p.name, p.v, kernel.MaxPriority)
		}
	}
	return nil
}
