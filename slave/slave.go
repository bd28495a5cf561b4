// Package slave holds the per-slave network model the master façade builds
// during bring-up and consults on every cyclic round: identity and
// capability bits read off the wire, the sync-manager table, the three FMMU
// slots process-data exchange is mapped through, and distributed-clock
// topology and timing.
package slave

import (
	"github.com/samsamfire/goethercat/frame"
	"github.com/samsamfire/goethercat/internal/bits"

	ethercat "github.com/samsamfire/goethercat"
)

// SyncManagerType classifies what a sync manager's window is used for.
type SyncManagerType int

const (
	SmUnused SyncManagerType = iota
	SmMailboxRx
	SmMailboxTx
	SmProcessDataRx
	SmProcessDataTx
)

// SyncManager is one of a slave's (typically four) configured SM windows.
type SyncManager struct {
	Type          SyncManagerType
	PhysicalStart uint16
	Length        uint16
}

// DcContext is a slave's distributed-clock bookkeeping: its place in the
// ring's port topology and the timing figures the DC initializer computes.
type DcContext struct {
	HasParent     bool
	ParentPosition uint16
	ParentPort     uint8

	// PortReceiveTime[p] is the latched arrival time recorded on port p by
	// the most recent latch-loop round.
	PortReceiveTime [4]uint32

	PropagationDelay uint32
	Offset           int64
}

// SlaveInfo is everything the network initializer learns about a slave
// during bring-up.
type SlaveInfo struct {
	Position       uint16
	StationAddress uint16

	VendorID       uint32
	ProductCode    uint32
	RevisionNumber uint32

	PortLinkActive [4]bool
	PortType       [4]uint8

	ProcessRamSize uint16
	FmmuCount      uint8
	SmCount        uint8

	ProcessDataRamStart uint16
	ProcessDataRamSize  uint16

	Sm [4]SyncManager

	SupportsDC         bool
	SupportsFmmuBitOps bool
	SupportsCoE        bool
	StrictAlControl    bool
}

// FmmuConfig is one FMMU register's worth of logical-to-physical mapping, in
// bit-exact terms: a logical bit range mapped onto a physical byte range in
// the slave's memory.
type FmmuConfig struct {
	LogicalAddress uint32
	LogicalStartBit uint8 // 0-7, bit offset within the first logical byte
	BitLength      int
	PhysicalAddress uint16
	PhysicalStartBit uint8
	Write          bool // RxPDO: master writes into the slave
	Enabled        bool
}

// ByteLength is the number of physical bytes the FMMU register must span:
// ceil((BitLength+PhysicalStartBit)/8).
func (f FmmuConfig) ByteLength() int {
	return bits.ByteLength(int(f.PhysicalStartBit), f.BitLength)
}

// ReadToBuffer copies this FMMU's bit range out of registers (the slave's
// physical memory, starting at byte 0 = PhysicalAddress) into image at
// LogicalStartBit, leaving every other bit of image untouched.
func (f FmmuConfig) ReadToBuffer(image []byte, imageByteOffset int, registers []byte) {
	dstBit := imageByteOffset*8 + int(f.LogicalStartBit)
	bits.Copy(image, dstBit, registers, int(f.PhysicalStartBit), f.BitLength)
}

// WriteFromBuffer is the inverse of ReadToBuffer: it copies this FMMU's bit
// range out of image into registers, leaving neighboring register bits
// untouched.
func (f FmmuConfig) WriteFromBuffer(registers []byte, image []byte, imageByteOffset int) {
	srcBit := imageByteOffset*8 + int(f.LogicalStartBit)
	bits.Copy(registers, int(f.PhysicalStartBit), image, srcBit, f.BitLength)
}

// PdoEntry is one object-dictionary entry assigned into a PDO mapping, and
// the logical address range it lands on once 4.13 step 4 has run.
type PdoEntry struct {
	Index    uint16
	SubIndex uint8
	BitLength uint8

	LogicalAddress uint32
	LogicalBit     uint8
}

// PdoMapping is one SM-assignment's ordered list of entries (
// step 1); IsFixed mappings are assumed already configured in the slave and
// are skipped during the inner object-dictionary write.
type PdoMapping struct {
	AssignmentIndex uint16 // SM-assignment object, e.g. 0x1C12/0x1C13
	MappingIndex    uint16 // PDO mapping object itself, e.g. 0x1600/0x1A00
	Entries         []PdoEntry
	IsFixed         bool
}

// BitLength sums the bit lengths of every entry in the mapping.
func (m PdoMapping) BitLength() int {
	total := 0
	for _, e := range m.Entries {
		total += int(e.BitLength)
	}
	return total
}

// Slave is the live, mutable per-slave state the master façade and the
// cyclic tasks operate on.
type Slave struct {
	Info  SlaveInfo
	State ethercat.AlState

	MbCount uint8 // last mailbox sequence number issued, 1-7 (0 before the first)

	Fmmu [3]FmmuConfig // 0: outputs, 1: inputs, 2: mailbox-state polling

	RxPdo PdoMapping
	TxPdo PdoMapping

	Dc DcContext
}

// Target addresses this slave by its fixed station address.
func (s *Slave) Target() ethercat.TargetSlave {
	return ethercat.Single(ethercat.ByStationAddress(s.StationAddress()))
}

func (s *Slave) StationAddress() uint16 { return s.Info.StationAddress }

// NextMbCount advances and returns the slave's mailbox sequence counter.
func (s *Slave) NextMbCount() uint8 {
	s.MbCount = frame.NextMailboxCount(s.MbCount)
	return s.MbCount
}
