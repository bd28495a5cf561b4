package task

import ethercat "github.com/samsamfire/goethercat"

// RegisterOpIterations bounds a single register read/write's Block budget.
// NextPDU reissues every round a reply doesn't arrive, so a handful of
// rounds either completes the op or shows the slave isn't answering at all
// — unlike a mailbox/service transfer, a bare register access never
// legitimately needs thousands of rounds to get a reply.
const RegisterOpIterations = 50

// RegRead is a single-shot register read, the building block the setup
// scripts (slave/network/DC initializers) compose into their linear steps.
type RegRead struct {
	target ethercat.TargetSlave
	reg    uint16
	size   int

	pending, finished bool
	payload           []byte
	wkc               uint16
	lostReplies       uint64
}

func NewRegRead(target ethercat.TargetSlave, reg uint16, size int) *RegRead {
	return &RegRead{target: target, reg: reg, size: size}
}

// NextPDU reissues every round: a read still pending when a new round
// starts means last round's reply never arrived, so it is only counted as
// a loss here, and the caller's Block budget (RegisterOpIterations) is what
// gives up fast, rather than this task silently waiting forever.
func (r *RegRead) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if r.finished {
		return ethercat.Command{}, 0, false
	}
	if r.pending {
		r.lostReplies++
	}
	r.pending = true
	return ethercat.NewReadCommand(r.target, 0, r.reg), r.size, true
}

func (r *RegRead) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	r.pending = false
	r.payload = append([]byte(nil), payload[:r.size]...)
	r.wkc = wkc
	r.finished = true
}

func (r *RegRead) IsFinished() bool      { return r.finished }
func (r *RegRead) Payload() []byte       { return r.payload }
func (r *RegRead) Wkc() uint16           { return r.wkc }
func (r *RegRead) LostReplyCount() uint64 { return r.lostReplies }

// RegWrite is a single-shot register write.
type RegWrite struct {
	target ethercat.TargetSlave
	reg    uint16
	data   []byte

	pending, finished bool
	wkc               uint16
	lostReplies       uint64
}

func NewRegWrite(target ethercat.TargetSlave, reg uint16, data []byte) *RegWrite {
	return &RegWrite{target: target, reg: reg, data: data}
}

// NextPDU reissues every round, for the same reason as RegRead.NextPDU.
func (w *RegWrite) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if w.finished {
		return ethercat.Command{}, 0, false
	}
	if w.pending {
		w.lostReplies++
	}
	w.pending = true
	n := copy(buf, w.data)
	return ethercat.NewWriteCommand(w.target, 0, w.reg), n, true
}

func (w *RegWrite) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	w.pending = false
	w.wkc = wkc
	w.finished = true
}

func (w *RegWrite) IsFinished() bool      { return w.finished }
func (w *RegWrite) Wkc() uint16           { return w.wkc }
func (w *RegWrite) LostReplyCount() uint64 { return w.lostReplies }
