//go:build !tinygo

package main

import (
	"bufio"
	"fmt"
	"io"

	"ember/emberos/proto"
	"ember/kernel"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiDim    = "\x1b[2m"
)

// monitor splits a board UART stream into log text and trace frames and
// prints both.
type monitor struct {
	out   io.Writer
	color bool
	hz    uint32

	frames  uint64
	dropped uint64
	lastSeq uint16
	haveSeq bool
	atLine  bool
}

func newMonitor(out io.Writer, color bool, hz uint32) *monitor {
	if hz == 0 {
		hz = kernel.DefaultTickHz
	}
	return &monitor{out: out, color: color, hz: hz, atLine: true}
}

// run consumes r until EOF or a read error.
func (m *monitor) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	sc.Split(proto.ScanFrames)
	for sc.Scan() {
		tok := sc.Bytes()
		if proto.IsTraceFrame(tok) {
			if rec, err := proto.DecodeTrace(tok); err == nil {
				m.frame(rec)
				continue
			}
		}
		m.text(tok)
	}
	return sc.Err()
}

func (m *monitor) text(b []byte) {
	if len(b) == 0 {
		return
	}
	_, _ = m.out.Write(b)
	m.atLine = b[len(b)-1] == '\n'
}

func (m *monitor) frame(rec proto.TraceRecord) {
	m.frames++
	if m.haveSeq && rec.Seq != m.lastSeq+1 {
		lost := uint64(rec.Seq - m.lastSeq - 1)
		m.dropped += lost
		m.line(ansiRed, fmt.Sprintf("-- %d trace events lost --", lost))
	}
	m.lastSeq = rec.Seq
	m.haveSeq = true

	m.line(kindColor(kernel.EventKind(rec.Kind)), formatRecord(rec, m.hz))
}

func (m *monitor) line(color, s string) {
	if !m.atLine {
		_, _ = io.WriteString(m.out, "\n")
	}
	if m.color && color != "" {
		s = color + s + ansiReset
	}
	_, _ = io.WriteString(m.out, s+"\n")
	m.atLine = true
}

func kindColor(k kernel.EventKind) string {
	switch k {
	case kernel.EventBoot:
		return ansiGreen
	case kernel.EventSwitch:
		return ansiDim
	case kernel.EventFatal:
		return ansiRed
	case kernel.EventIRQ:
		return ansiYellow
	default:
		return ansiCyan
	}
}

func taskLabel(id uint8) string {
	if id == kernel.IdleTaskID {
		return "idle"
	}
	return fmt.Sprintf("task %d", id)
}

// formatRecord renders one event with its time in milliseconds.
func formatRecord(rec proto.TraceRecord, hz uint32) string {
	ms := uint64(rec.Tick) * 1000 / uint64(hz)
	kind := kernel.EventKind(rec.Kind)
	head := fmt.Sprintf("[%8d ms] #%-5d %-6s", ms, rec.Seq, kind)
	switch kind {
	case kernel.EventBoot:
		return fmt.Sprintf("%s %d tasks", head, rec.Arg)
	case kernel.EventSwitch:
		return fmt.Sprintf("%s -> %s sp 0x%08x", head, taskLabel(rec.Task), rec.Arg)
	case kernel.EventFatal:
		return fmt.Sprintf("%s %s in %s", head, kernel.ErrorCode(rec.Arg).String(), taskLabel(rec.Task))
	case kernel.EventIRQ:
		return fmt.Sprintf("%s line %d over %s", head, rec.Arg, taskLabel(rec.Task))
	default:
		return fmt.Sprintf("%s kind %d task %d arg 0x%08x", head, rec.Kind, rec.Task, rec.Arg)
	}
}

func (m *monitor) summary() string {
	return fmt.Sprintf("%d frames, %d lost", m.frames, m.dropped)
}
