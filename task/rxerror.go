package task

import (
	ethercat "github.com/samsamfire/goethercat"
)

// RxErrorReader re-reads a slave's receive-error counters every cycle, one
// of the steady-state tasks the master façade drives every cycle.
type RxErrorReader struct {
	target ethercat.TargetSlave

	pending     bool
	counters    []byte
	wkcMismatch bool
	lostReplies uint64
}

// NewRxErrorReader builds a reader against target.
func NewRxErrorReader(target ethercat.TargetSlave) *RxErrorReader {
	return &RxErrorReader{target: target}
}

// NextPDU always reissues: a read still pending when a new round starts
// means last round's reply never came back, so it only counts as a loss and
// is retried, never as a reason to stop polling this slave.
func (r *RxErrorReader) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if r.pending {
		r.lostReplies++
	}
	r.pending = true
	return ethercat.NewReadCommand(r.target, 0, ethercat.RegRxErrorCounter), 8, true
}

func (r *RxErrorReader) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	r.pending = false
	r.counters = append([]byte(nil), payload[:8]...)
	if wkc != r.target.ExpectedWkc() {
		r.wkcMismatch = true
	}
}

// IsFinished is always false: this is a steady-state task the master façade
// drives every cycle, never a one-shot setup step.
func (r *RxErrorReader) IsFinished() bool { return false }

// Counters returns the eight raw counter bytes (port 0/1/2/3 RX error and
// forwarded error counts, register-layout order).
func (r *RxErrorReader) Counters() []byte { return r.counters }

func (r *RxErrorReader) WkcMismatch() bool      { return r.wkcMismatch }
func (r *RxErrorReader) LostReplyCount() uint64 { return r.lostReplies }

// Port returns the RX error counter for the given port (0-3).
func (r *RxErrorReader) Port(port int) uint8 {
	if r.counters == nil || port < 0 || port > 3 {
		return 0
	}
	return r.counters[port]
}
