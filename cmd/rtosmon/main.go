//go:build !tinygo

// Command rtosmon shows the log and trace stream of a board UART, or of a
// capture file written with ember -trace.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.bug.st/serial"
)

const defaultBaud = 115200

func main() {
	var port, file, colorMode string
	var baud int
	var hz uint
	var list bool
	flag.StringVar(&port, "port", "", "Serial port of the board (e.g. /dev/ttyACM0).")
	flag.StringVar(&file, "file", "", "Read a capture file instead of a port (- for stdin).")
	flag.IntVar(&baud, "baud", defaultBaud, "Serial baud rate.")
	flag.UintVar(&hz, "hz", 1000, "Kernel tick rate, for timestamps.")
	flag.StringVar(&colorMode, "color", "auto", "Color output: auto, always or never.")
	flag.BoolVar(&list, "list", false, "List serial ports and exit.")
	flag.Parse()

	if list {
		if err := listPorts(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "rtosmon:", err)
			os.Exit(1)
		}
		return
	}
	if (port == "") == (file == "") {
		fmt.Fprintln(os.Stderr, "rtosmon: exactly one of -port or -file is required")
		os.Exit(2)
	}

	out, color, err := stdout(colorMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rtosmon:", err)
		os.Exit(2)
	}

	m := newMonitor(out, color, uint32(hz))
	if err := run(m, port, file, baud); err != nil {
		fmt.Fprintln(os.Stderr, "rtosmon:", err)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, "rtosmon:", m.summary())
}

func stdout(mode string) (io.Writer, bool, error) {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	switch mode {
	case "auto":
		if tty {
			return colorable.NewColorableStdout(), true, nil
		}
		return os.Stdout, false, nil
	case "always":
		return colorable.NewColorableStdout(), true, nil
	case "never":
		return colorable.NewNonColorable(os.Stdout), false, nil
	default:
		return nil, false, fmt.Errorf("unknown -color %q", mode)
	}
}

func run(m *monitor, port, file string, baud int) error {
	if file != "" {
		if file == "-" {
			return m.run(os.Stdin)
		}
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open capture %q: %w", file, err)
		}
		defer func() { _ = f.Close() }()
		return m.run(f)
	}

	lock := flock.New(lockPath(port))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %q: %w", port, err)
	}
	if !ok {
		return fmt.Errorf("port %q is in use by another rtosmon", port)
	}
	defer func() { _ = lock.Unlock() }()

	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return fmt.Errorf("open port %q: %w", port, err)
	}
	defer func() { _ = p.Close() }()

	err = m.run(p)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// lockPath is the per-port lock file in the temp directory.
func lockPath(port string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(port)
	return filepath.Join(os.TempDir(), "rtosmon"+name+".lock")
}

func listPorts(w io.Writer) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}
