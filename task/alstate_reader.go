package task

import (
	"encoding/binary"

	ethercat "github.com/samsamfire/goethercat"
)

const alStatusRegister = 0x0130

// AlStateResult is the outcome of one AlStateReader run.
type AlStateResult struct {
	State      ethercat.AlState
	StatusCode *ethercat.AlStatusCode // nil unless the slave's error bit was set
}

// AlStateReader issues a single broadcast or fixed read of the AL-status
// register and parses the reply.
type AlStateReader struct {
	target ethercat.TargetSlave

	pending     bool
	finished    bool
	result      AlStateResult
	wkcMismatch bool
	lostReplies uint64
}

// NewAlStateReader builds a reader targeting target.
func NewAlStateReader(target ethercat.TargetSlave) *AlStateReader {
	return &AlStateReader{target: target}
}

// NextPDU always reissues: a read still pending when a new round starts
// means last round's reply never came back, so it only counts as a loss and
// is retried. A Block-driven setup caller just stops polling once the first
// reply parses; the master façade keeps calling this every cycle regardless.
func (r *AlStateReader) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if r.pending {
		r.lostReplies++
	}
	r.pending = true
	return ethercat.NewReadCommand(r.target, 0, alStatusRegister), 6, true
}

func (r *AlStateReader) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	r.pending = false
	if wkc != r.target.ExpectedWkc() {
		r.wkcMismatch = true
	}
	b0 := payload[0]
	r.result.State = ethercat.AlState(b0 & 0x0f)
	r.result.StatusCode = nil
	if b0&0x10 != 0 {
		code := ethercat.AlStatusCode(binary.LittleEndian.Uint16(payload[4:6]))
		r.result.StatusCode = &code
	}
	r.finished = true
}

// IsFinished reports whether at least one reply has ever been parsed. A
// setup-time caller driving this through Block sees it go true once and
// stops; the master façade ignores it and keeps polling every cycle.
func (r *AlStateReader) IsFinished() bool { return r.finished }

// Result returns the parsed state once the task has finished.
func (r *AlStateReader) Result() AlStateResult { return r.result }

// WkcMismatch reports whether the reply's working counter did not match the
// target's expectation. A mismatch does not prevent State/StatusCode from
// being reported.
func (r *AlStateReader) WkcMismatch() bool      { return r.wkcMismatch }
func (r *AlStateReader) LostReplyCount() uint64 { return r.lostReplies }
