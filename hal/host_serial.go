//go:build !tinygo

package hal

import (
	"io"
	"sync"
)

// hostSerial is a transmit-only UART. The host board has nothing on the
// other end to send back.
type hostSerial struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *hostSerial) Read(p []byte) (int, error) {
	return 0, ErrNotImplemented
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
