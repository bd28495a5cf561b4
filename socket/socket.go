// Package socket implements the socket multiplexer: a fixed-size table of
// logical channels sharing one PDU interface, each holding one outstanding
// datagram and its reply. Datagram index equals socket index.
package socket

import (
	"github.com/samsamfire/goethercat/frame"

	ethercat "github.com/samsamfire/goethercat"
)

// Socket owns one contiguous byte buffer and the bookkeeping for one
// outstanding datagram and its reply.
type Socket struct {
	buf []byte

	pending     bool
	pendingCmd  ethercat.Command
	pendingLen  int

	received   bool
	dataLen    int
	wkc        uint16
}

// NewSocket allocates a socket with a capacity-byte buffer.
func NewSocket(capacity int) *Socket {
	return &Socket{buf: make([]byte, capacity)}
}

// Buffer exposes the socket's backing buffer, for callers (tasks) that need
// to read reply payload or stage request payload in place.
func (s *Socket) Buffer() []byte { return s.buf }

// SetPDU arms the socket with one outstanding datagram. fill is called with
// the socket's buffer and must return the command to send and the payload
// length used.
func (s *Socket) SetPDU(fill func(buf []byte) (ethercat.Command, int)) {
	cmd, n := fill(s.buf)
	s.pending = true
	s.pendingCmd = cmd
	s.pendingLen = n
	s.received = false
}

// SetPDUOptional is the task-driven counterpart to SetPDU: fill may decline
// to produce a datagram this round (ok=false), in which case the socket is
// left with nothing pending and the PDU interface skips it this round.
func (s *Socket) SetPDUOptional(fill func(buf []byte) (cmd ethercat.Command, n int, ok bool)) {
	cmd, n, ok := fill(s.buf)
	if !ok {
		return
	}
	s.pending = true
	s.pendingCmd = cmd
	s.pendingLen = n
	s.received = false
}

// TakePDU is called by the PDU interface to consume the outstanding
// datagram for transmission. Returns ok=false if nothing is pending.
func (s *Socket) TakePDU() (cmd ethercat.Command, payload []byte, ok bool) {
	if !s.pending {
		return ethercat.Command{}, nil, false
	}
	s.pending = false
	return s.pendingCmd, s.buf[:s.pendingLen], true
}

// HasPending reports whether the socket has an outstanding datagram not yet
// taken for transmission.
func (s *Socket) HasPending() bool { return s.pending }

// Receive writes a reply's payload and working counter into the socket's
// buffer and marks the received-flag.
func (s *Socket) Receive(dg frame.Datagram) {
	n := copy(s.buf, dg.Payload)
	s.dataLen = n
	s.wkc = dg.Wkc.Value()
	s.received = true
}

// GetReceivedPDU returns the received payload and working counter, and true,
// only if the received-flag is set; it clears the flag.
func (s *Socket) GetReceivedPDU() (payload []byte, wkc uint16, ok bool) {
	if !s.received {
		return nil, 0, false
	}
	s.received = false
	return s.buf[:s.dataLen], s.wkc, true
}
