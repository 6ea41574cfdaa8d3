//go:build !tinygo

package main

import (
	"bytes"
	"strings"
	"testing"

	"ember/emberos/proto"
	"ember/kernel"

	"github.com/gofrs/flock"
)

func TestFormatRecord(t *testing.T) {
	tests := []struct {
		rec  proto.TraceRecord
		want string
	}{
		{
			proto.TraceRecord{Kind: uint8(kernel.EventBoot), Task: kernel.IdleTaskID, Arg: 4},
			"[       0 ms] #0     boot   4 tasks",
		},
		{
			proto.TraceRecord{Kind: uint8(kernel.EventSwitch), Task: 2, Seq: 7, Tick: 1500, Arg: 0x20000230},
			"[    1500 ms] #7     switch -> task 2 sp 0x20000230",
		},
		{
			proto.TraceRecord{Kind: uint8(kernel.EventFatal), Task: 1, Seq: 8, Tick: 1501, Arg: uint32(kernel.ErrDelayFromInterrupt)},
			"[    1501 ms] #8     fatal  delay from interrupt in task 1",
		},
		{
			proto.TraceRecord{Kind: uint8(kernel.EventIRQ), Task: kernel.IdleTaskID, Seq: 9, Tick: 20, Arg: 3},
			"[      20 ms] #9     irq    line 3 over idle",
		},
	}
	for _, tt := range tests {
		if got := formatRecord(tt.rec, 1000); got != tt.want {
			t.Fatalf("formatRecord() = %q, want %q", got, tt.want)
		}
	}

	if got := formatRecord(proto.TraceRecord{Kind: uint8(kernel.EventBoot), Tick: 50}, 100); !strings.HasPrefix(got, "[     500 ms]") {
		t.Fatalf("formatRecord() at 100 Hz = %q", got)
	}
}

func TestMonitorMixedStream(t *testing.T) {
	var in bytes.Buffer
	in.WriteString("ember: boot\n")
	in.Write(proto.AppendTrace(nil, proto.TraceRecord{Kind: uint8(kernel.EventBoot), Seq: 0, Arg: 3}))
	in.WriteString("LED green")
	in.Write(proto.AppendTrace(nil, proto.TraceRecord{Kind: uint8(kernel.EventIRQ), Seq: 1, Arg: 0}))
	in.WriteString(" on\n")
	in.Write(proto.AppendTrace(nil, proto.TraceRecord{Kind: uint8(kernel.EventSwitch), Seq: 4, Task: 1}))

	var out bytes.Buffer
	m := newMonitor(&out, false, 1000)
	if err := m.run(&in); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"ember: boot\n[       0 ms] #0     boot   3 tasks\n",
		"LED green\n[       0 ms] #1     irq    line 0 over task 0\n on\n",
		"-- 2 trace events lost --\n",
		"switch -> task 1",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if m.summary() != "3 frames, 2 lost" {
		t.Fatalf("summary() = %q", m.summary())
	}
}

func TestMonitorColor(t *testing.T) {
	var out bytes.Buffer
	m := newMonitor(&out, true, 1000)
	if err := m.run(bytes.NewReader(proto.AppendTrace(nil, proto.TraceRecord{Kind: uint8(kernel.EventFatal)}))); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), ansiRed) || !strings.HasSuffix(out.String(), ansiReset+"\n") {
		t.Fatalf("colored output = %q", out.String())
	}
}

func TestMonitorCorruptFrameIsText(t *testing.T) {
	f := proto.AppendTrace(nil, proto.TraceRecord{Kind: uint8(kernel.EventBoot)})
	f[len(f)-1] ^= 0xFF

	var out bytes.Buffer
	m := newMonitor(&out, false, 1000)
	if err := m.run(bytes.NewReader(f)); err != nil {
		t.Fatal(err)
	}
	if m.frames != 0 || !bytes.Equal(out.Bytes(), f) {
		t.Fatalf("corrupt frame decoded: frames=%d out=%q", m.frames, out.Bytes())
	}
}

func TestLockPathIsPerPort(t *testing.T) {
	a, b := lockPath("/dev/ttyACM0"), lockPath("/dev/ttyACM1")
	if a == b || strings.Contains(a[strings.LastIndex(a, "rtosmon"):], "/") {
		t.Fatalf("lockPath() = %q, %q", a, b)
	}

	first := flock.New(a)
	ok, err := first.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}
	defer first.Unlock()

	second := flock.New(a)
	if ok, _ := second.TryLock(); ok {
		t.Fatal("second TryLock() succeeded on a held port lock")
	}
}
