package master

import (
	"encoding/binary"

	"github.com/samsamfire/goethercat/frame"
	"github.com/samsamfire/goethercat/internal/bits"
	"github.com/samsamfire/goethercat/socket"
	"github.com/samsamfire/goethercat/task"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/slave"
)

// AssignPdoAddresses lays out mapping's entries sequentially starting at
// bit 0 of logicalByteOffset, writing each entry's
// LogicalAddress/LogicalBit in place and returning the FMMU's byte length
// and the bit index (0-7) of the mapping's last covered bit.
func AssignPdoAddresses(mapping *slave.PdoMapping, logicalByteOffset uint32) (fmmuByteLength int, endBit uint8) {
	cursor := 0
	for i := range mapping.Entries {
		e := &mapping.Entries[i]
		e.LogicalAddress = logicalByteOffset + uint32(cursor/8)
		e.LogicalBit = uint8(cursor % 8)
		cursor += int(e.BitLength)
	}
	fmmuByteLength = bits.ByteLength(0, cursor)
	endBit = uint8((cursor - 1) % 8)
	if cursor == 0 {
		endBit = 0
	}
	return fmmuByteLength, endBit
}

// ConfigurePdoImage walks every slave's RX/TX PDO mappings in order,
// assigning each a contiguous logical address range, programming
// its FMMU and process-data sync managers, and returning the total image
// size and expected working counter for the resulting LRW exchange.
func ConfigurePdoImage(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, slaves []*slave.Slave, logicalBase uint32) (imageSize int, expectedWkc uint16, err error) {
	cursor := logicalBase

	for _, s := range slaves {
		pdRamPointer := s.Info.ProcessDataRamStart

		if len(s.RxPdo.Entries) > 0 {
			if err := writePdoMappingObjects(ss, sock, clock, s, &s.RxPdo); err != nil {
				return 0, 0, err
			}
			n, endBit := AssignPdoAddresses(&s.RxPdo, cursor)
			fmmu := slave.FmmuConfig{
				LogicalAddress:  cursor,
				LogicalStartBit: 0,
				BitLength:       s.RxPdo.BitLength(),
				PhysicalAddress: pdRamPointer,
				Write:           true,
				Enabled:         true,
			}
			s.Fmmu[0] = fmmu
			if err := writeFmmu(ss, sock, clock, s, 0, fmmu, endBit); err != nil {
				return 0, 0, err
			}
			if err := configureProcessDataSm(ss, sock, clock, s, 0, pdRamPointer, uint16(s.RxPdo.BitLength()), true); err != nil {
				return 0, 0, err
			}
			pdRamPointer += uint16(n) * 3
			cursor += uint32(n)
			expectedWkc += 2
		}

		if len(s.TxPdo.Entries) > 0 {
			if err := writePdoMappingObjects(ss, sock, clock, s, &s.TxPdo); err != nil {
				return 0, 0, err
			}
			n, endBit := AssignPdoAddresses(&s.TxPdo, cursor)
			fmmu := slave.FmmuConfig{
				LogicalAddress:  cursor,
				LogicalStartBit: 0,
				BitLength:       s.TxPdo.BitLength(),
				PhysicalAddress: pdRamPointer,
				Write:           false,
				Enabled:         true,
			}
			s.Fmmu[1] = fmmu
			if err := writeFmmu(ss, sock, clock, s, 1, fmmu, endBit); err != nil {
				return 0, 0, err
			}
			if err := configureProcessDataSm(ss, sock, clock, s, 1, pdRamPointer, uint16(s.TxPdo.BitLength()), false); err != nil {
				return 0, 0, err
			}
			cursor += uint32(n)
			expectedWkc++
		}

		if uint32(frame.MaxDatagramData) < cursor-logicalBase {
			return 0, 0, ethercat.ErrFrameCapacity
		}
	}

	return int(cursor - logicalBase), expectedWkc, nil
}

func writeFmmu(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, slot int, f slave.FmmuConfig, endBit uint8) error {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], f.LogicalAddress)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(f.ByteLength()))
	buf[6] = f.LogicalStartBit
	buf[7] = endBit
	binary.LittleEndian.PutUint16(buf[8:10], f.PhysicalAddress)
	buf[10] = f.PhysicalStartBit
	if f.Write {
		buf[11] = 0x02
	} else {
		buf[11] = 0x01
	}
	buf[12] = 1 // enable

	reg := ethercat.RegFMMU0 + uint16(slot)*ethercat.RegFMMUStride
	return task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), reg, buf[:13]), task.RegisterOpIterations)
}

func configureProcessDataSm(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, smIndex int, physStart uint16, bitLength uint16, write bool) error {
	byteLength := (bitLength + 7) / 8
	dir := byte(0)
	if write {
		dir = 1
	}
	ctrl := []byte{byte(physStart), byte(physStart >> 8), byte(byteLength), byte(byteLength >> 8), dir << 2}
	reg := ethercat.RegSM0 + uint16(2+smIndex)*ethercat.RegSMStride
	if err := task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), reg, ctrl), task.RegisterOpIterations); err != nil {
		return err
	}
	activate := byte(0)
	if byteLength != 0 {
		activate = 1
	}
	const smActivateOffset = 6 // see task.smMailboxFullBit's register layout comment
	return task.Block(ss, sock, clock, task.NewRegWrite(s.Target(), reg+smActivateOffset, []byte{activate}), task.RegisterOpIterations)
}
