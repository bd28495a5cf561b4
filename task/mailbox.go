package task

import (
	"time"

	"github.com/samsamfire/goethercat/frame"

	ethercat "github.com/samsamfire/goethercat"
)

// Sync-manager register layout, relative to the SM's base (RegSM0 +
// index*RegSMStride): 0-1 physical start, 2-3 length, 4 control, 5 status,
// 6 activate, 7 PDI control. Status bit 3 reports mailbox-full; activate
// bit 1 is the repeat-request toggle; PDI control bit 1 echoes it back as
// repeat-ack once the resend has been queued.
const (
	smStatusOffset   = 5
	smActivateOffset = 6
	smMailboxFullBit = 0x08
	smRepeatBit      = 0x02
	pdiRepeatAckBit  = 0x02
)

const (
	mailboxReadTimeout  = 2000 * time.Millisecond
	mailboxWriteTimeout = 100 * time.Millisecond
)

type MailboxErrorKind int

const (
	MailboxErrNotAvailable MailboxErrorKind = iota
	MailboxErrEmpty
	MailboxErrFull
	MailboxErrTimeout
	MailboxErrBufferTooSmall
	MailboxErrResponse
)

type MailboxError struct {
	Kind      MailboxErrorKind
	ErrorType uint16
	Detail    uint16
}

func (e *MailboxError) Error() string {
	switch e.Kind {
	case MailboxErrNotAvailable:
		return "mailbox: not available (wkc mismatch)"
	case MailboxErrEmpty:
		return "mailbox: empty"
	case MailboxErrFull:
		return "mailbox: full"
	case MailboxErrTimeout:
		return "mailbox: timeout"
	case MailboxErrBufferTooSmall:
		return "mailbox: buffer too small"
	case MailboxErrResponse:
		return "mailbox: slave returned an error response"
	default:
		return "mailbox: unknown error"
	}
}

// SyncManagerWindow is the physical window and register base a mailbox
// task addresses: the SM's own control block plus the buffer it guards.
type SyncManagerWindow struct {
	RegisterBase  uint16 // RegSM0 + index*RegSMStride
	BufferAddress uint16
	BufferLength  uint16
}

type mbReadPhase int

const (
	mbrCheckFull mbReadPhase = iota
	mbrRead
	mbrRequestRepeat
	mbrWaitRepeatAck
	mbrDone
)

// MailboxRead drives the check-full -> read -> (optional repeat) -> done
// state machine.
type MailboxRead struct {
	target ethercat.TargetSlave
	sm     SyncManagerWindow
	wait   bool

	phase    mbReadPhase
	awaiting bool

	wantRepeat  bool
	deadline    ethercat.SystemTime
	deadlineSet bool

	payload  []byte
	finished bool
	err      error
}

func NewMailboxRead(target ethercat.TargetSlave, sm SyncManagerWindow, wait bool) *MailboxRead {
	return &MailboxRead{target: target, sm: sm, wait: wait}
}

func (r *MailboxRead) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if r.awaiting || r.phase == mbrDone {
		return ethercat.Command{}, 0, false
	}
	r.awaiting = true
	switch r.phase {
	case mbrCheckFull:
		return ethercat.NewReadCommand(r.target, 0, r.sm.RegisterBase+smStatusOffset), 2, true
	case mbrRead:
		if int(r.sm.BufferLength) > len(buf) {
			r.fail(&MailboxError{Kind: MailboxErrBufferTooSmall})
			r.awaiting = false
			return ethercat.Command{}, 0, false
		}
		return ethercat.NewReadCommand(r.target, 0, r.sm.BufferAddress), int(r.sm.BufferLength), true
	case mbrRequestRepeat:
		toggled := byte(0)
		if r.wantRepeat {
			toggled = smRepeatBit
		}
		buf[0] = toggled
		return ethercat.NewWriteCommand(r.target, 0, r.sm.RegisterBase+smActivateOffset), 1, true
	case mbrWaitRepeatAck:
		return ethercat.NewReadCommand(r.target, 0, r.sm.RegisterBase+smActivateOffset+1), 1, true // SM PDI control
	}
	return ethercat.Command{}, 0, false
}

func (r *MailboxRead) fail(err error) {
	r.err = err
	r.finished = true
	r.phase = mbrDone
}

func (r *MailboxRead) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	r.awaiting = false

	if !r.deadlineSet {
		r.deadline = now.Add(mailboxReadTimeout)
		r.deadlineSet = true
	}

	switch r.phase {
	case mbrCheckFull:
		if wkc != 1 {
			r.fail(&MailboxError{Kind: MailboxErrNotAvailable})
			return
		}
		full := payload[0]&smMailboxFullBit != 0
		if !full {
			if r.wait {
				if now.After(r.deadline) {
					r.fail(&MailboxError{Kind: MailboxErrTimeout})
				}
				return
			}
			r.fail(&MailboxError{Kind: MailboxErrEmpty})
			return
		}
		r.phase = mbrRead

	case mbrRead:
		if wkc != 1 {
			r.wantRepeat = !r.wantRepeat
			r.phase = mbrRequestRepeat
			return
		}
		hdr := frame.MailboxHeader(payload[:frame.MailboxHeaderSize])
		if hdr.Type() == frame.MailboxTypeError && len(payload) >= frame.MailboxHeaderSize+4 {
			resp := frame.ErrorResponsePayload(payload[frame.MailboxHeaderSize : frame.MailboxHeaderSize+4])
			r.fail(&MailboxError{Kind: MailboxErrResponse, ErrorType: resp.ErrorType(), Detail: resp.Detail()})
			return
		}
		r.payload = append([]byte(nil), payload...)
		r.finished = true
		r.phase = mbrDone

	case mbrRequestRepeat:
		r.phase = mbrWaitRepeatAck

	case mbrWaitRepeatAck:
		ack := payload[0]&pdiRepeatAckBit != 0
		wantAck := r.wantRepeat
		if ack == wantAck {
			r.phase = mbrRead
			return
		}
		if now.After(r.deadline) {
			r.fail(&MailboxError{Kind: MailboxErrTimeout})
		}
	}
}

func (r *MailboxRead) IsFinished() bool { return r.finished }
func (r *MailboxRead) Err() error       { return r.err }
func (r *MailboxRead) Payload() []byte  { return r.payload }

type mbWritePhase int

const (
	mbwCheckEmpty mbWritePhase = iota
	mbwWrite
	mbwDone
)

// MailboxWrite drives the check-empty -> write -> done state machine.
// Payload must already hold the full mailbox-header-prefixed message.
type MailboxWrite struct {
	target  ethercat.TargetSlave
	sm      SyncManagerWindow
	wait    bool
	payload []byte

	phase    mbWritePhase
	awaiting bool
	deadline ethercat.SystemTime
	armed    bool

	finished bool
	err      error
}

func NewMailboxWrite(target ethercat.TargetSlave, sm SyncManagerWindow, wait bool, payload []byte) *MailboxWrite {
	return &MailboxWrite{target: target, sm: sm, wait: wait, payload: payload}
}

func (w *MailboxWrite) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if w.awaiting || w.phase == mbwDone {
		return ethercat.Command{}, 0, false
	}
	w.awaiting = true
	switch w.phase {
	case mbwCheckEmpty:
		return ethercat.NewReadCommand(w.target, 0, w.sm.RegisterBase+smStatusOffset), 2, true
	case mbwWrite:
		n := copy(buf, w.payload)
		return ethercat.NewWriteCommand(w.target, 0, w.sm.BufferAddress), n, true
	}
	return ethercat.Command{}, 0, false
}

func (w *MailboxWrite) fail(err error) {
	w.err = err
	w.finished = true
	w.phase = mbwDone
}

func (w *MailboxWrite) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	w.awaiting = false
	if !w.armed {
		w.deadline = now.Add(mailboxWriteTimeout)
		w.armed = true
	}

	switch w.phase {
	case mbwCheckEmpty:
		if wkc != 1 {
			w.fail(&MailboxError{Kind: MailboxErrNotAvailable})
			return
		}
		full := payload[0]&smMailboxFullBit != 0
		if full {
			if w.wait {
				if now.After(w.deadline) {
					w.fail(&MailboxError{Kind: MailboxErrTimeout})
				}
				return
			}
			w.fail(&MailboxError{Kind: MailboxErrFull})
			return
		}
		w.phase = mbwWrite

	case mbwWrite:
		if wkc != 1 {
			w.fail(&MailboxError{Kind: MailboxErrNotAvailable})
			return
		}
		w.finished = true
		w.phase = mbwDone
	}
}

func (w *MailboxWrite) IsFinished() bool { return w.finished }
func (w *MailboxWrite) Err() error       { return w.err }
