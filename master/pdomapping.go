package master

import (
	"encoding/binary"

	"github.com/samsamfire/goethercat/slave"
	"github.com/samsamfire/goethercat/socket"
	"github.com/samsamfire/goethercat/task"

	ethercat "github.com/samsamfire/goethercat"
)

// mailboxWindow builds the sync-manager window a mailbox task addresses for
// the first configured SM of the given type (SmMailboxRx or SmMailboxTx).
func mailboxWindow(s *slave.Slave, kind slave.SyncManagerType) task.SyncManagerWindow {
	for i, sm := range s.Info.Sm {
		if sm.Type == kind {
			return task.SyncManagerWindow{
				RegisterBase:  ethercat.RegSM0 + uint16(i)*ethercat.RegSMStride,
				BufferAddress: sm.PhysicalStart,
				BufferLength:  sm.Length,
			}
		}
	}
	return task.SyncManagerWindow{}
}

// download runs one CoE expedited/normal download against index/subIndex
// and advances the slave's mailbox sequence counter.
func download(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, index uint16, subIndex uint8, data []byte) error {
	rx := mailboxWindow(s, slave.SmMailboxRx)
	tx := mailboxWindow(s, slave.SmMailboxTx)
	d := task.NewServiceDownload(s.Target(), rx, tx, s.NextMbCount(), index, subIndex, data, false)
	if err := task.Block(ss, sock, clock, d, 0); err != nil {
		return err
	}
	return d.Err()
}

func downloadU8(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, index uint16, subIndex uint8, v uint8) error {
	return download(ss, sock, clock, s, index, subIndex, []byte{v})
}

func downloadU16(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, index uint16, subIndex uint8, v uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return download(ss, sock, clock, s, index, subIndex, buf)
}

func downloadU32(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, index uint16, subIndex uint8, v uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return download(ss, sock, clock, s, index, subIndex, buf)
}

// upload runs one CoE upload of index/subIndex and advances the slave's
// mailbox sequence counter.
func upload(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, index uint16, subIndex uint8) ([]byte, error) {
	rx := mailboxWindow(s, slave.SmMailboxRx)
	tx := mailboxWindow(s, slave.SmMailboxTx)
	u := task.NewServiceUpload(s.Target(), rx, tx, s.NextMbCount(), index, subIndex, false)
	if err := task.Block(ss, sock, clock, u, 0); err != nil {
		return nil, err
	}
	if err := u.Err(); err != nil {
		return nil, err
	}
	return u.Result(), nil
}

func uploadU32(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, index uint16, subIndex uint8) (uint32, error) {
	data, err := upload(ss, sock, clock, s, index, subIndex)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 4)
	copy(buf, data)
	return binary.LittleEndian.Uint32(buf), nil
}

// writePdoMappingObjects writes a PdoMapping's entries into its mapping
// object and assigns that mapping object into its SM-assignment object
// (spec step 1 of the PDO image configuration): clear, assign entries
// sub-index by sub-index, set the entry count, then point the
// SM-assignment object at the mapping object and set its count to 1.
// Fixed mappings (the slave's own built-in PDO layout) are left untouched.
func writePdoMappingObjects(ss *socket.SocketSet, sock *socket.Socket, clock task.Clock, s *slave.Slave, mapping *slave.PdoMapping) error {
	if !s.Info.SupportsCoE || mapping.IsFixed || len(mapping.Entries) == 0 {
		return nil
	}

	if err := downloadU8(ss, sock, clock, s, mapping.MappingIndex, 0, 0); err != nil {
		return err
	}
	for i, e := range mapping.Entries {
		word := uint32(e.Index)<<16 | uint32(e.SubIndex)<<8 | uint32(e.BitLength)
		if err := downloadU32(ss, sock, clock, s, mapping.MappingIndex, uint8(i+1), word); err != nil {
			return err
		}
	}
	if err := downloadU8(ss, sock, clock, s, mapping.MappingIndex, 0, uint8(len(mapping.Entries))); err != nil {
		return err
	}

	if err := downloadU8(ss, sock, clock, s, mapping.AssignmentIndex, 0, 0); err != nil {
		return err
	}
	if err := downloadU16(ss, sock, clock, s, mapping.AssignmentIndex, 1, mapping.MappingIndex); err != nil {
		return err
	}
	return downloadU8(ss, sock, clock, s, mapping.AssignmentIndex, 0, 1)
}
