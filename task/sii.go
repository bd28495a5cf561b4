package task

import (
	"encoding/binary"
	"time"

	ethercat "github.com/samsamfire/goethercat"
)

// SiiErrorKind enumerates the SII-reader-specific failure modes.
type SiiErrorKind int

const (
	SiiErrPermission SiiErrorKind = iota
	SiiErrBusy
	SiiErrSizeOver
	SiiErrChecksum
	SiiErrDeviceInfo
	SiiErrCommand
	SiiErrTimeout
)

type SiiError struct{ Kind SiiErrorKind }

func (e *SiiError) Error() string {
	switch e.Kind {
	case SiiErrPermission:
		return "sii: ownership not granted"
	case SiiErrBusy:
		return "sii: controller busy"
	case SiiErrSizeOver:
		return "sii: 16-bit address rejected by 8-bit-addressing slave"
	case SiiErrChecksum:
		return "sii: eeprom checksum error"
	case SiiErrDeviceInfo:
		return "sii: device info error"
	case SiiErrCommand:
		return "sii: command error"
	case SiiErrTimeout:
		return "sii: 100ms busy-wait timeout"
	default:
		return "sii: unknown error"
	}
}

const siiWaitTimeout = 100 * time.Millisecond

type siiPhase int

const (
	siiInit siiPhase = iota
	siiSetOwnership
	siiCheckOwnership
	siiSetAddress
	siiSetReadOperation
	siiWait
	siiReadData
	siiDone
)

// SiiReader implements the EEPROM sequential-register read protocol.
type SiiReader struct {
	target   ethercat.TargetSlave
	wordAddr uint32

	phase    siiPhase
	awaiting bool

	eightBitAddressing bool
	readWidth          int

	data []byte

	deadline ethercat.SystemTime

	finished bool
	err      error
}

// NewSiiReader builds a reader for wordAddr against target.
func NewSiiReader(target ethercat.TargetSlave, wordAddr uint32) *SiiReader {
	return &SiiReader{target: target, wordAddr: wordAddr}
}

func (r *SiiReader) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if r.awaiting || r.phase == siiDone {
		return ethercat.Command{}, 0, false
	}
	r.awaiting = true
	switch r.phase {
	case siiInit:
		return ethercat.NewReadCommand(r.target, 0, ethercat.RegSIIControl), 2, true
	case siiSetOwnership:
		binary.LittleEndian.PutUint16(buf[:2], 0)
		return ethercat.NewWriteCommand(r.target, 0, ethercat.RegSIIAccess), 2, true
	case siiCheckOwnership:
		return ethercat.NewReadCommand(r.target, 0, ethercat.RegSIIAccess), 2, true
	case siiSetAddress:
		binary.LittleEndian.PutUint32(buf[:4], r.wordAddr)
		return ethercat.NewWriteCommand(r.target, 0, ethercat.RegSIIAddress), 4, true
	case siiSetReadOperation:
		binary.LittleEndian.PutUint16(buf[:2], 1<<8) // read_operation bit
		return ethercat.NewWriteCommand(r.target, 0, ethercat.RegSIIControl), 2, true
	case siiWait:
		return ethercat.NewReadCommand(r.target, 0, ethercat.RegSIIControl), 2, true
	case siiReadData:
		return ethercat.NewReadCommand(r.target, 0, ethercat.RegSIIData), r.readWidth, true
	}
	return ethercat.Command{}, 0, false
}

func (r *SiiReader) fail(kind SiiErrorKind) {
	r.err = &SiiError{Kind: kind}
	r.finished = true
	r.phase = siiDone
}

func (r *SiiReader) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	r.awaiting = false

	switch r.phase {
	case siiInit:
		ctrl := binary.LittleEndian.Uint16(payload[:2])
		if ctrl&(1<<11) != 0 { // check_sum_error
			r.fail(SiiErrChecksum)
			return
		}
		if ctrl&(1<<12) != 0 { // device_info_error
			r.fail(SiiErrDeviceInfo)
			return
		}
		if ctrl&(1<<15) != 0 { // busy
			r.fail(SiiErrBusy)
			return
		}
		r.eightBitAddressing = ctrl&0x01 == 0 // read_size bit: 0 -> 4 bytes/8-bit addr
		if r.eightBitAddressing {
			r.readWidth = 4
		} else {
			r.readWidth = 8
		}
		if r.eightBitAddressing && r.wordAddr > 0xff {
			r.fail(SiiErrSizeOver)
			return
		}
		r.phase = siiSetOwnership

	case siiSetOwnership:
		r.phase = siiCheckOwnership

	case siiCheckOwnership:
		access := binary.LittleEndian.Uint16(payload[:2])
		if access&0x01 != 0 { // still owned by PDI
			r.fail(SiiErrPermission)
			return
		}
		r.phase = siiSetAddress

	case siiSetAddress:
		r.phase = siiSetReadOperation

	case siiSetReadOperation:
		r.deadline = now.Add(siiWaitTimeout)
		r.phase = siiWait

	case siiWait:
		ctrl := binary.LittleEndian.Uint16(payload[:2])
		if ctrl&(1<<15) == 0 { // no longer busy
			if ctrl&(1<<13) != 0 {
				r.fail(SiiErrCommand)
				return
			}
			r.phase = siiReadData
			return
		}
		if now.After(r.deadline) {
			r.fail(SiiErrTimeout)
		}

	case siiReadData:
		r.data = append([]byte(nil), payload[:r.readWidth]...)
		r.finished = true
		r.phase = siiDone
	}
}

func (r *SiiReader) IsFinished() bool { return r.finished }

// Result returns the data word and its effective width (4 or 8), valid once
// finished without error.
func (r *SiiReader) Result() (data []byte, width int) { return r.data, r.readWidth }

func (r *SiiReader) Err() error { return r.err }
