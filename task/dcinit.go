package task

import (
	"encoding/binary"

	"github.com/samsamfire/goethercat/socket"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/slave"
)

const dcLatchRounds = 16
const dcDriftWarmupRounds = 100

// PropagationDelay computes one slave's cable delay from its parent's and
// its own per-port receive-time latches: the parent's
// round-trip span minus this slave's round-trip span, halved, added to the
// parent's own delay. Subtraction wraps modulo 2^32, matching the
// hardware's free-running latch counter.
func PropagationDelay(parentDelay, parentT0, parentT1, childT0, childT1 uint32) uint32 {
	outer := parentT1 - parentT0
	inner := childT1 - childT0
	return parentDelay + (outer-inner)/2
}

// RunDcInit drives the distributed-clock initializer against
// every DC-capable slave in ring order and starts the 100-round drift
// warmup, returning a DcDriftCompensator the caller keeps driving every
// cycle afterward.
func RunDcInit(ss *socket.SocketSet, sock *socket.Socket, clock Clock, slaves []*slave.Slave) (*DcDriftCompensator, error) {
	var dcSlaves []*slave.Slave
	for _, s := range slaves {
		if s.Info.SupportsDC {
			dcSlaves = append(dcSlaves, s)
		}
	}
	if len(dcSlaves) == 0 {
		return NewDcDriftCompensator(0), nil
	}

	latchPayload := make([]byte, 4)
	for i := 0; i < dcLatchRounds; i++ {
		write := NewRegWrite(ethercat.All(uint16(len(dcSlaves))), ethercat.RegDcReceiveTime, latchPayload)
		if err := Block(ss, sock, clock, write, RegisterOpIterations); err != nil {
			return nil, err
		}
	}

	for _, s := range dcSlaves {
		sysRead := NewRegRead(s.Target(), ethercat.RegDcSystemTime, 8)
		if err := Block(ss, sock, clock, sysRead, RegisterOpIterations); err != nil {
			return nil, err
		}
		if sysRead.Wkc() != 1 {
			return nil, ethercat.NewUnexpectedWkcError(1, sysRead.Wkc())
		}
		slaveTime := int64(binary.LittleEndian.Uint64(sysRead.Payload()))
		offset := int64(clock.Now()) - slaveTime
		if offset < 0 {
			offset = 0
		}
		if s.Dc.Offset == 0 {
			s.Dc.Offset = offset
		} else {
			s.Dc.Offset = (s.Dc.Offset + offset) / 2
		}

		recvRead := NewRegRead(s.Target(), ethercat.RegDcReceiveTime, 16)
		if err := Block(ss, sock, clock, recvRead, RegisterOpIterations); err != nil {
			return nil, err
		}
		if recvRead.Wkc() != 1 {
			return nil, ethercat.NewUnexpectedWkcError(1, recvRead.Wkc())
		}
		for p := 0; p < 4; p++ {
			s.Dc.PortReceiveTime[p] = binary.LittleEndian.Uint32(recvRead.Payload()[p*4 : p*4+4])
		}
	}

	byPosition := make(map[uint16]*slave.Slave, len(dcSlaves))
	for _, s := range dcSlaves {
		byPosition[s.Info.Position] = s
	}
	for _, s := range dcSlaves[1:] {
		if !s.Dc.HasParent {
			continue
		}
		parent, ok := byPosition[s.Dc.ParentPosition]
		if !ok {
			continue
		}
		s.Dc.PropagationDelay = PropagationDelay(
			parent.Dc.PropagationDelay,
			parent.Dc.PortReceiveTime[0], parent.Dc.PortReceiveTime[1],
			s.Dc.PortReceiveTime[0], s.Dc.PortReceiveTime[1],
		)
	}

	for _, s := range dcSlaves {
		offsetBuf := make([]byte, 8)
		binary.LittleEndian.PutUint64(offsetBuf, uint64(s.Dc.Offset))
		if err := Block(ss, sock, clock, NewRegWrite(s.Target(), ethercat.RegDcSystemTimeOffset, offsetBuf), RegisterOpIterations); err != nil {
			return nil, err
		}
	}
	for _, s := range dcSlaves {
		delayBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(delayBuf, s.Dc.PropagationDelay)
		if err := Block(ss, sock, clock, NewRegWrite(s.Target(), ethercat.RegDcTransmissionDelay, delayBuf), RegisterOpIterations); err != nil {
			return nil, err
		}
	}

	compensator := NewDcDriftCompensator(uint16(len(dcSlaves)))
	for i := 0; i < dcDriftWarmupRounds; i++ {
		if _, err := ss.PollTxRx(); err != nil {
			return nil, err
		}
		ProcessOneStep(sock, compensator, clock.Now())
	}
	return compensator, nil
}
