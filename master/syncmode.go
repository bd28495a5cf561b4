package master

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/samsamfire/goethercat/slave"
	"github.com/samsamfire/goethercat/socket"
	"github.com/samsamfire/goethercat/task"

	ethercat "github.com/samsamfire/goethercat"
)

// SyncMode selects what drives a slave's process-data cycle.
type SyncMode uint8

const (
	SyncFreeRun SyncMode = iota
	SyncManagerEvent
	SyncDcSync0
	SyncDcSync1
)

// CoE 0x1C32/0x1C33 sync-manager parameter sub-indices.
const (
	subSyncType           uint8 = 1
	subCycleTime          uint8 = 2
	subSyncTypesSupported uint8 = 4
	subMinCycleTime       uint8 = 5
	subSyncErrorCounter   uint8 = 0x0A

	regOutputsSyncParams uint16 = 0x1C32
	regInputsSyncParams  uint16 = 0x1C33
)

// dcStartDelay is how far past the current DC time CyclicOperationStartTime
// is armed, giving every slave's local clock time to cross it in step.
const dcStartDelay = 10 * time.Millisecond

// ErrCycleTimeTooSmall reports a requested cycle time below what a slave's
// 0x1C32:5 minimum cycle time object allows.
type ErrCycleTimeTooSmall struct {
	Requested, Minimum uint32
}

func (e *ErrCycleTimeTooSmall) Error() string {
	return fmt.Sprintf("sync mode: requested cycle time %dns below minimum %dns", e.Requested, e.Minimum)
}

// ErrSyncStartTimeout reports that a slave's local DC clock never crossed
// its armed CyclicOperationStartTime within the spin-wait budget.
var ErrSyncStartTimeout = fmt.Errorf("sync mode: slave did not reach cyclic start time")

const syncStartSpinRounds = 200

// ConfigureSyncMode programs a CoE-capable slave's 0x1C32/0x1C33 objects
// for the requested mode and cycle time, then, for a DC-driven mode,
// programs the Sync0/Sync1 cycle-time registers (Sync1 at half the Sync0
// period), arms CyclicOperationStartTime dcStartDelay past the slave's
// current DC time, and spin-waits until that time has passed.
func ConfigureSyncMode(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, mode SyncMode, cycleTimeNs uint32) error {
	if !s.Info.SupportsCoE {
		return nil
	}

	supported, err := uploadU32(ss, sock, clock, s, regOutputsSyncParams, subSyncTypesSupported)
	if err == nil && supported != 0 && supported&(1<<uint(mode)) == 0 {
		return fmt.Errorf("sync mode: slave does not support requested sync type %d (supported mask 0x%x)", mode, supported)
	}

	minCycle, err := uploadU32(ss, sock, clock, s, regOutputsSyncParams, subMinCycleTime)
	if err == nil && minCycle != 0 && cycleTimeNs < minCycle {
		return &ErrCycleTimeTooSmall{Requested: cycleTimeNs, Minimum: minCycle}
	}

	for _, regIndex := range []uint16{regOutputsSyncParams, regInputsSyncParams} {
		if err := downloadU16(ss, sock, clock, s, regIndex, subSyncType, uint16(mode)); err != nil {
			return err
		}
		if err := downloadU32(ss, sock, clock, s, regIndex, subCycleTime, cycleTimeNs); err != nil {
			return err
		}
		if err := downloadU16(ss, sock, clock, s, regIndex, subSyncErrorCounter, 0); err != nil {
			return err
		}
	}

	if mode != SyncDcSync0 && mode != SyncDcSync1 {
		return nil
	}
	if !s.Info.SupportsDC {
		return nil
	}

	sync0 := cycleTimeNs
	sync1 := cycleTimeNs / 2

	buf4 := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf4, sync0)
	if err := task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), ethercat.RegDcSync0CycleTime, buf4), task.RegisterOpIterations); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf4, sync1)
	if err := task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), ethercat.RegDcSync1CycleTime, buf4), task.RegisterOpIterations); err != nil {
		return err
	}

	now, err := readDcSystemTime(ss, sock, clock, s)
	if err != nil {
		return err
	}
	startTime := now + uint64(dcStartDelay.Nanoseconds())
	buf8 := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf8, startTime)
	if err := task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), ethercat.RegDcStartTime, buf8), task.RegisterOpIterations); err != nil {
		return err
	}

	activation := byte(1) // sync enable
	if mode == SyncDcSync0 {
		activation |= 1 << 1
	}
	if mode == SyncDcSync1 {
		activation |= 1 << 2
	}
	if err := task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), ethercat.RegDcCyclicControl, []byte{activation}), task.RegisterOpIterations); err != nil {
		return err
	}

	for i := 0; i < syncStartSpinRounds; i++ {
		cur, err := readDcSystemTime(ss, sock, clock, s)
		if err != nil {
			return err
		}
		if cur >= startTime {
			return nil
		}
	}
	return ErrSyncStartTimeout
}

func readDcSystemTime(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave) (uint64, error) {
	r := task.NewRegRead(s.Target(), ethercat.RegDcSystemTime, 8)
	if err := task.Block(ss, sock, clock, r, task.RegisterOpIterations); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.Payload()), nil
}
