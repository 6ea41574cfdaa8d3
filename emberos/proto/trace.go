package proto

import (
	"encoding/binary"
	"errors"

	"github.com/sigurn/crc16"
)

// Trace frame layout:
//   - u8: TraceSync
//   - u8: event kind
//   - u8: task id
//   - u16: sequence number (little-endian, wraps)
//   - u32: tick (little-endian)
//   - u32: argument (little-endian)
//   - u16: CRC-16/XMODEM of bytes 1..12 (big-endian)
//
// The sync byte is not valid ASCII or UTF-8 on its own, so frames can share
// a UART with log lines.
const (
	TraceSync      = 0xE7
	TracePayload   = 12
	TraceFrameSize = 1 + TracePayload + 2
)

var (
	ErrShortFrame = errors.New("proto: short frame")
	ErrBadSync    = errors.New("proto: bad sync byte")
	ErrBadCRC     = errors.New("proto: bad crc")
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// TraceRecord is one decoded trace frame.
type TraceRecord struct {
	Kind uint8
	Task uint8
	Seq  uint16
	Tick uint32
	Arg  uint32
}

// AppendTrace appends the frame for r to dst.
func AppendTrace(dst []byte, r TraceRecord) []byte {
	var f [TraceFrameSize]byte
	f[0] = TraceSync
	f[1] = r.Kind
	f[2] = r.Task
	binary.LittleEndian.PutUint16(f[3:5], r.Seq)
	binary.LittleEndian.PutUint32(f[5:9], r.Tick)
	binary.LittleEndian.PutUint32(f[9:13], r.Arg)
	binary.BigEndian.PutUint16(f[13:15], crc16.Checksum(f[1:13], crcTable))
	return append(dst, f[:]...)
}

// DecodeTrace decodes one frame from the start of b.
func DecodeTrace(b []byte) (TraceRecord, error) {
	if len(b) < TraceFrameSize {
		return TraceRecord{}, ErrShortFrame
	}
	if b[0] != TraceSync {
		return TraceRecord{}, ErrBadSync
	}
	if crc16.Checksum(b[1:13], crcTable) != binary.BigEndian.Uint16(b[13:15]) {
		return TraceRecord{}, ErrBadCRC
	}
	return TraceRecord{
		Kind: b[1],
		Task: b[2],
		Seq:  binary.LittleEndian.Uint16(b[3:5]),
		Tick: binary.LittleEndian.Uint32(b[5:9]),
		Arg:  binary.LittleEndian.Uint32(b[9:13]),
	}, nil
}

// ScanFrames is a bufio.SplitFunc for a UART stream carrying both text and
// trace frames. Each token is either a whole valid frame or a run of text
// ending at a newline or before the next sync byte. A sync byte that does
// not start a valid frame comes out as a one-byte text token.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}
	if data[0] == TraceSync {
		if len(data) < TraceFrameSize {
			if atEOF {
				return len(data), data, nil
			}
			return 0, nil, nil
		}
		if _, err := DecodeTrace(data[:TraceFrameSize]); err == nil {
			return TraceFrameSize, data[:TraceFrameSize], nil
		}
		return 1, data[:1], nil
	}
	for i, b := range data {
		switch b {
		case TraceSync:
			return i, data[:i], nil
		case '\n':
			return i + 1, data[:i+1], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// IsTraceFrame reports whether a ScanFrames token is a frame.
func IsTraceFrame(token []byte) bool {
	return len(token) == TraceFrameSize && token[0] == TraceSync
}
