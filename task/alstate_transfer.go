package task

import (
	"encoding/binary"
	"time"

	ethercat "github.com/samsamfire/goethercat"
)

const alControlRegister = 0x0120

// AlStateTransferError reports a failed transition: the AL-status-code read
// back from the slave and the state it was actually found in.
type AlStateTransferError struct {
	Code  ethercat.AlStatusCode
	State ethercat.AlState
}

func (e *AlStateTransferError) Error() string {
	return "al state transfer failed: " + e.Code.String() + " in state " + e.State.String()
}

// transitionTimeout returns the wire-specified timeout for a from->to
// transition.
func transitionTimeout(from, to ethercat.AlState) time.Duration {
	switch {
	case to == ethercat.AlStateInit:
		return 5000 * time.Millisecond
	case from == ethercat.AlStateInit && (to == ethercat.AlStatePreOp || to == ethercat.AlStateBoot):
		return 3000 * time.Millisecond
	case from == ethercat.AlStatePreOp && (to == ethercat.AlStateSafeOp || to == ethercat.AlStateOp):
		return 10000 * time.Millisecond
	case to == ethercat.AlStatePreOp:
		return 5000 * time.Millisecond
	case from == ethercat.AlStateOp && to == ethercat.AlStateSafeOp:
		return 200 * time.Millisecond
	default:
		return 5000 * time.Millisecond
	}
}

type transferPhase int

const (
	phaseReadCurrent transferPhase = iota
	phaseResetError
	phaseRequest
	phasePoll
	phaseDone
)

// AlStateTransfer drives a slave (or broadcast target) from its current
// state to want.
type AlStateTransfer struct {
	target ethercat.TargetSlave
	want   ethercat.AlState

	phase    transferPhase
	awaiting bool

	current  ethercat.AlState
	deadline ethercat.SystemTime
	haveDeadline bool

	finished bool
	err      error
}

// NewAlStateTransfer builds a transfer of target to want.
func NewAlStateTransfer(target ethercat.TargetSlave, want ethercat.AlState) *AlStateTransfer {
	return &AlStateTransfer{target: target, want: want}
}

func (t *AlStateTransfer) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if t.awaiting || t.phase == phaseDone {
		return ethercat.Command{}, 0, false
	}
	switch t.phase {
	case phaseReadCurrent, phasePoll:
		t.awaiting = true
		return ethercat.NewReadCommand(t.target, 0, alStatusRegister), 6, true
	case phaseResetError:
		t.awaiting = true
		binary.LittleEndian.PutUint16(buf[:2], uint16(t.want)|0x0010)
		return ethercat.NewWriteCommand(t.target, 0, alControlRegister), 2, true
	case phaseRequest:
		t.awaiting = true
		binary.LittleEndian.PutUint16(buf[:2], uint16(t.want))
		return ethercat.NewWriteCommand(t.target, 0, alControlRegister), 2, true
	}
	return ethercat.Command{}, 0, false
}

func (t *AlStateTransfer) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	t.awaiting = false

	switch t.phase {
	case phaseReadCurrent:
		b0 := payload[0]
		t.current = ethercat.AlState(b0 & 0x0f)
		errorBit := b0&0x10 != 0

		if t.current == t.want {
			t.finished = true
			t.phase = phaseDone
			return
		}
		if errorBit {
			t.phase = phaseResetError
			return
		}
		t.phase = phaseRequest

	case phasePoll:
		b0 := payload[0]
		t.current = ethercat.AlState(b0 & 0x0f)
		errorBit := b0&0x10 != 0

		if t.current == t.want {
			t.finished = true
			t.phase = phaseDone
			return
		}
		if errorBit {
			code := ethercat.AlStatusCode(binary.LittleEndian.Uint16(payload[4:6]))
			t.err = &AlStateTransferError{Code: code, State: t.current}
			t.finished = true
			t.phase = phaseDone
			return
		}
		if t.haveDeadline && now.After(t.deadline) {
			t.err = ethercat.ErrTimeout
			t.finished = true
			t.phase = phaseDone
		}

	case phaseResetError:
		t.phase = phaseRequest

	case phaseRequest:
		t.deadline = now.Add(transitionTimeout(t.current, t.want))
		t.haveDeadline = true
		t.phase = phasePoll
	}
}

func (t *AlStateTransfer) IsFinished() bool { return t.finished }

// Err returns the failure, if any, once finished.
func (t *AlStateTransfer) Err() error { return t.err }
