package task

import (
	"encoding/binary"

	"github.com/samsamfire/goethercat/socket"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/slave"
)

// SlaveInitError wraps the step at which bring-up of one slave failed.
type SlaveInitError struct {
	Step string
	Err  error
}

func (e *SlaveInitError) Error() string { return "slave init (" + e.Step + "): " + e.Err.Error() }
func (e *SlaveInitError) Unwrap() error  { return e.Err }

// ErrFailedToLoadEEPROM reports a data-link status whose PDI-operational
// bit is clear at slave-init step 4.
var ErrFailedToLoadEEPROM = &SlaveInitError{Step: "dl-status", Err: ethercat.ErrUnexpectedCommand}

const (
	dlControlDropNonFieldbus = 1 << 0
	dlControlNoAlias         = 1 << 2

	watchdogDivider100us = 2498

	dlStatusPdiOperational = 1 << 0

	dlInfoDcSupported   = 1 << 2
	dlInfoFmmuBitOps    = 1 << 3
	dlInfoLrwSupported  = 1 << 12
)

// RunSlaveInit drives one slave through its bring-up script,
// addressing it positionally since it has no station address yet.
func RunSlaveInit(ss *socket.SocketSet, sock *socket.Socket, clock Clock, position uint16) (*slave.SlaveInfo, error) {
	target := ethercat.Single(ethercat.ByPosition(position))
	info := &slave.SlaveInfo{Position: position}

	// 1. data-link control
	ctrl := make([]byte, 2)
	binary.LittleEndian.PutUint16(ctrl, dlControlDropNonFieldbus|dlControlNoAlias)
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegDLControl, ctrl), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"dl-control", err}
	}

	// 2. transition to Init
	transfer := NewAlStateTransfer(target, ethercat.AlStateInit)
	if err := Block(ss, sock, clock, transfer, 0); err != nil {
		return nil, &SlaveInitError{"al-init", err}
	}
	if transfer.Err() != nil {
		return nil, &SlaveInitError{"al-init", transfer.Err()}
	}

	// 3. clear error counters, set watchdog divider, disable watchdogs
	zero8 := make([]byte, 8)
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegRxErrorCounter, zero8), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"rx-error-clear", err}
	}
	divider := make([]byte, 2)
	binary.LittleEndian.PutUint16(divider, watchdogDivider100us)
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegWatchdogDivider, divider), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"watchdog-divider", err}
	}
	zero4 := make([]byte, 4)
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegDLUserWatchdog, zero4[:2]), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"disable-dlu-watchdog", err}
	}
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegSyncManChWatchdog, zero4[:2]), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"disable-sm-watchdog", err}
	}

	// 4. data-link status
	statusRead := NewRegRead(target, ethercat.RegDLStatus, 2)
	if err := Block(ss, sock, clock, statusRead, RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"dl-status", err}
	}
	status := binary.LittleEndian.Uint16(statusRead.Payload())
	if status&dlStatusPdiOperational == 0 {
		return nil, ErrFailedToLoadEEPROM
	}
	for p := 0; p < 4; p++ {
		info.PortLinkActive[p] = status&(1<<(4+uint(p))) != 0
	}

	// 5. data-link info
	dlInfoRead := NewRegRead(target, ethercat.RegDLInformation, 8)
	if err := Block(ss, sock, clock, dlInfoRead, RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"dl-info", err}
	}
	dlInfo := dlInfoRead.Payload()
	infoWord := binary.LittleEndian.Uint32(dlInfo[:4])
	info.SupportsDC = infoWord&dlInfoDcSupported != 0
	info.SupportsFmmuBitOps = infoWord&dlInfoFmmuBitOps != 0
	for p := 0; p < 4; p++ {
		info.PortType[p] = uint8((infoWord >> (8 + uint(p)*2)) & 0x03)
	}
	info.ProcessRamSize = binary.LittleEndian.Uint16(dlInfo[4:6])
	info.FmmuCount = dlInfo[6]
	info.SmCount = dlInfo[7]
	if info.SupportsDC && infoWord&(1<<10) == 0 {
		return nil, &SlaveInitError{"dl-info", ethercat.ErrUnexpectedCommand}
	}
	if infoWord&dlInfoLrwSupported == 0 {
		return nil, &SlaveInitError{"dl-info", ethercat.ErrUnexpectedCommand}
	}

	// 6. clear FMMU 0-2 and SM 0-3
	fmmuZero := make([]byte, 3*int(ethercat.RegFMMUStride))
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegFMMU0, fmmuZero), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"clear-fmmu", err}
	}
	smZero := make([]byte, 4*int(ethercat.RegSMStride))
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegSM0, smZero), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"clear-sm", err}
	}

	// 7. identity + mailbox geometry via SII
	words, err := readSiiWords(ss, sock, clock, target,
		ethercat.SiiVendorID, ethercat.SiiProductCode, ethercat.SiiRevisionNumber, ethercat.SiiMailboxProtocol,
		ethercat.SiiStandardRxMbxSize, ethercat.SiiStandardRxMbxAddr, ethercat.SiiStandardTxMbxSize, ethercat.SiiStandardTxMbxAddr)
	if err != nil {
		return nil, &SlaveInitError{"sii-identity", err}
	}
	info.VendorID = words[0]
	info.ProductCode = words[1]
	info.RevisionNumber = words[2]
	protocolSupport := words[3]
	info.SupportsCoE = protocolSupport&0x04 != 0
	rxSize, rxOffset, txSize, txOffset := uint16(words[4]), uint16(words[5]), uint16(words[6]), uint16(words[7])

	smIdx := 0
	if rxSize != 0 && info.SmCount >= 4 {
		info.Sm[smIdx] = slave.SyncManager{Type: slave.SmMailboxRx, PhysicalStart: rxOffset, Length: rxSize}
		smIdx++
	}
	if txSize != 0 && info.SmCount >= 4 {
		info.Sm[smIdx] = slave.SyncManager{Type: slave.SmMailboxTx, PhysicalStart: txOffset, Length: txSize}
		smIdx++
	}

	// 8. process-data RAM window: larger of the region before the mailbox
	// SMs (from 0x1000) vs. after them (to RAM end).
	mbxStart, mbxEnd := minMax(rxOffset, rxOffset+rxSize, txOffset, txOffset+txSize)
	beforeLen := int(mbxStart) - 0x1000
	if beforeLen < 0 {
		beforeLen = 0
	}
	afterLen := int(info.ProcessRamSize) - int(mbxEnd)
	if afterLen < 0 {
		afterLen = 0
	}
	if beforeLen >= afterLen {
		info.ProcessDataRamStart = 0x1000
		info.ProcessDataRamSize = uint16(beforeLen)
	} else {
		info.ProcessDataRamStart = mbxEnd
		info.ProcessDataRamSize = uint16(afterLen)
	}

	// 9. SM control + activation for the two mailbox SMs
	for i := 0; i < smIdx; i++ {
		sm := info.Sm[i]
		dir := byte(0)
		if sm.Type == slave.SmMailboxRx {
			dir = 1
		}
		ctrl := []byte{byte(sm.PhysicalStart), byte(sm.PhysicalStart >> 8), byte(sm.Length), byte(sm.Length >> 8), 0b10 | dir<<2 | 1<<4, 0, 0, 0}
		reg := ethercat.RegSM0 + uint16(i)*ethercat.RegSMStride
		if err := Block(ss, sock, clock, NewRegWrite(target, reg, ctrl[:5]), RegisterOpIterations); err != nil {
			return nil, &SlaveInitError{"sm-control", err}
		}
		activate := []byte{1}
		if err := Block(ss, sock, clock, NewRegWrite(target, reg+smActivateOffset, activate), RegisterOpIterations); err != nil {
			return nil, &SlaveInitError{"sm-activate", err}
		}
	}

	// 10. fixed station address
	info.StationAddress = position + 1
	addr := make([]byte, 2)
	binary.LittleEndian.PutUint16(addr, info.StationAddress)
	if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegFixedStationAddress, addr), RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"station-address", err}
	}

	// 11. PDI control, strict AL control bit
	pdiRead := NewRegRead(target, ethercat.RegPdiControl, 1)
	if err := Block(ss, sock, clock, pdiRead, RegisterOpIterations); err != nil {
		return nil, &SlaveInitError{"pdi-control", err}
	}
	info.StrictAlControl = pdiRead.Payload()[0]&0x01 != 0

	// 12. clear DC registers if supported
	if info.SupportsDC {
		zeroDc := make([]byte, 4)
		if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegDcCyclicControl, zeroDc[:1]), RegisterOpIterations); err != nil {
			return nil, &SlaveInitError{"dc-clear", err}
		}
		zeroDcTime := make([]byte, 8)
		if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegDcStartTime, zeroDcTime), RegisterOpIterations); err != nil {
			return nil, &SlaveInitError{"dc-clear", err}
		}
		if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegDcSync0CycleTime, zeroDc), RegisterOpIterations); err != nil {
			return nil, &SlaveInitError{"dc-clear", err}
		}
		if err := Block(ss, sock, clock, NewRegWrite(target, ethercat.RegDcSync1CycleTime, zeroDc), RegisterOpIterations); err != nil {
			return nil, &SlaveInitError{"dc-clear", err}
		}
	}

	return info, nil
}

func minMax(a, b, c, d uint16) (lo, hi uint16) {
	lo, hi = a, a
	for _, v := range []uint16{a, b, c, d} {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func readSiiWords(ss *socket.SocketSet, sock *socket.Socket, clock Clock, target ethercat.TargetSlave, addrs ...uint16) ([]uint32, error) {
	out := make([]uint32, len(addrs))
	for i, addr := range addrs {
		r := NewSiiReader(target, uint32(addr))
		if err := Block(ss, sock, clock, r, 0); err != nil {
			return nil, err
		}
		if r.Err() != nil {
			return nil, r.Err()
		}
		data, width := r.Result()
		if width == 4 {
			out[i] = binary.LittleEndian.Uint32(data)
		} else {
			out[i] = uint32(binary.LittleEndian.Uint16(data))
		}
	}
	return out, nil
}
