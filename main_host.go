//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"ember/app"
	"ember/hal"
)

func main() {
	var cfg hal.HeadlessConfig
	var configPath, script, tracePath string
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Host step rate in headless mode.")
	flag.Uint64Var(&cfg.Steps, "ticks", 0, "Stop after N host steps in headless mode (0 = run forever).")
	flag.StringVar(&configPath, "config", "", "Board config file (YAML).")
	flag.StringVar(&script, "script", "", `Button script, e.g. "click 1 200ms; wait 1s".`)
	flag.BoolVar(&cfg.Board.TTY, "tty", false, "Toggle the buttons with keys 1 and 2 on the terminal.")
	flag.StringVar(&tracePath, "trace", "", "Write the serial trace stream to this file.")
	flag.BoolVar(&cfg.Board.LEDLog, "led-log", false, "Log every LED change.")
	flag.Parse()

	if err := run(cfg, configPath, script, tracePath); err != nil {
		fmt.Fprintln(os.Stderr, "ember:", err)
		os.Exit(1)
	}
}

func run(cfg hal.HeadlessConfig, configPath, script, tracePath string) error {
	boardCfg := app.DefaultConfig()
	if configPath != "" {
		var err error
		if boardCfg, err = app.LoadConfig(configPath); err != nil {
			return err
		}
	}
	if script == "" {
		script = boardCfg.Script
	}
	if script != "" {
		steps, err := hal.ParseScript(script)
		if err != nil {
			return err
		}
		cfg.Board.Script = steps
	}
	cfg.Board.TickHz = int(boardCfg.TickHz)

	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		cfg.Board.Serial = f
	} else {
		cfg.Board.Serial = io.Discard
		boardCfg.Trace.Enabled = false
	}

	if cfg.Enabled {
		boardCfg.ExitOnHalt = true
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := hal.RunHeadless(ctx, func(h hal.HAL) func() error {
			return app.NewWithConfig(h, boardCfg)
		}, cfg)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return hal.RunWindow(func(h hal.HAL) func() error {
		return app.NewWithConfig(h, boardCfg)
	}, cfg.Board)
}
