// Package cortexm describes the ARMv7-M exception stack frame used to start
// and resume tasks.
//
// A task's initial frame mimics what the switch handler leaves on the stack
// after saving a preempted task: the hardware-stacked registers (R0-R3, R12,
// LR, PC, xPSR), the EXC_RETURN value the handler needs to return to thread
// mode, and the callee-saved registers R4-R11.
package cortexm

import (
	"errors"
	"fmt"
)

// WordBytes is the size of one stack slot.
const WordBytes = 4

// Slot positions counted from the top of the stack (1 = last word).
const (
	SlotXPSR = iota + 1
	SlotPC
	SlotLR
	SlotR12
	SlotR3
	SlotR2
	SlotR1
	SlotR0
	SlotExcReturn
	SlotR4
	SlotR5
	SlotR6
	SlotR7
	SlotR8
	SlotR9
	SlotR10
	SlotR11
)

const (
	// FrameWords is the full frame, including EXC_RETURN and R4-R11.
	FrameWords = SlotR11

	// InitXPSR sets the Thumb bit; clearing it faults on the first instruction.
	InitXPSR uint32 = 1 << 24
	// ExcReturnThreadMSP returns to thread mode on the main stack, no FPU state.
	ExcReturnThreadMSP uint32 = 0xFFFFFFF9
)

var (
	ErrStackTooSmall = errors.New("cortexm: stack too small for exception frame")
	ErrMisaligned    = errors.New("cortexm: address not word aligned")
	ErrOutOfStack    = errors.New("cortexm: stack pointer outside stack")
)

// Frame is a decoded exception frame.
type Frame struct {
	R         [13]uint32 // R0-R12
	LR        uint32
	PC        uint32
	XPSR      uint32
	ExcReturn uint32
}

// Offset returns the byte offset of slot from a stack pointer that points at
// the start of a full frame.
func Offset(slot int) uint32 {
	return uint32(FrameWords-slot) * WordBytes
}

// Build writes the initial frame at the top of stack and returns the stack
// pointer to hand to the switch handler. base is the address of stack[0].
//
// ret is the address the task lands on if its body returns.
func Build(stack []uint32, base, entry, ret uint32) (uint32, error) {
	n := len(stack)
	if n < FrameWords {
		return 0, ErrStackTooSmall
	}
	if base%WordBytes != 0 {
		return 0, ErrMisaligned
	}
	for i := n - FrameWords; i < n; i++ {
		stack[i] = 0
	}

	stack[n-SlotXPSR] = InitXPSR
	stack[n-SlotPC] = entry
	stack[n-SlotLR] = ret
	stack[n-SlotExcReturn] = ExcReturnThreadMSP

	return base + uint32(n-FrameWords)*WordBytes, nil
}

// Decode reads the frame that sp points at.
func Decode(stack []uint32, base, sp uint32) (Frame, error) {
	if sp%WordBytes != 0 {
		return Frame{}, ErrMisaligned
	}
	if sp < base {
		return Frame{}, fmt.Errorf("decode sp 0x%08x below base 0x%08x: %w", sp, base, ErrOutOfStack)
	}
	idx := int((sp - base) / WordBytes)
	if idx+FrameWords > len(stack) {
		return Frame{}, fmt.Errorf("decode sp 0x%08x: %w", sp, ErrOutOfStack)
	}

	w := stack[idx : idx+FrameWords]
	at := func(slot int) uint32 { return w[FrameWords-slot] }

	var f Frame
	f.R[0] = at(SlotR0)
	f.R[1] = at(SlotR1)
	f.R[2] = at(SlotR2)
	f.R[3] = at(SlotR3)
	f.R[4] = at(SlotR4)
	f.R[5] = at(SlotR5)
	f.R[6] = at(SlotR6)
	f.R[7] = at(SlotR7)
	f.R[8] = at(SlotR8)
	f.R[9] = at(SlotR9)
	f.R[10] = at(SlotR10)
	f.R[11] = at(SlotR11)
	f.R[12] = at(SlotR12)
	f.LR = at(SlotLR)
	f.PC = at(SlotPC)
	f.XPSR = at(SlotXPSR)
	f.ExcReturn = at(SlotExcReturn)
	return f, nil
}

// Thumb reports whether the frame resumes in Thumb state.
func (f Frame) Thumb() bool { return f.XPSR&InitXPSR != 0 }
