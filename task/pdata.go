package task

import (
	ethercat "github.com/samsamfire/goethercat"
)

// LogicalProcessData issues one logical read-write at a fixed logical
// address every cycle. Like the drift compensator, it never
// fails: a bad or missing working counter only increments a counter, since
// one cycle's stale process image is the caller's concern, not the task's.
type LogicalProcessData struct {
	logicalAddress uint32
	imageSize      int
	expectedWkc    uint16

	pending bool

	image          []byte
	invalidWkcSeen uint64
	lostDatagrams  uint64
}

// NewLogicalProcessData builds a cyclic exchanger of imageSize bytes at
// logicalAddress, expecting expectedWkc.
func NewLogicalProcessData(logicalAddress uint32, imageSize int, expectedWkc uint16) *LogicalProcessData {
	return &LogicalProcessData{
		logicalAddress: logicalAddress,
		imageSize:      imageSize,
		expectedWkc:    expectedWkc,
		image:          make([]byte, imageSize),
	}
}

// Image is the process-data buffer the caller reads inputs from and writes
// outputs into between cycles; its contents are copied into/out of the
// datagram's payload on each NextPDU/OnReply round trip.
func (p *LogicalProcessData) Image() []byte { return p.image }

// NextPDU always reissues the exchange, whether or not the previous round's
// reply arrived: a slave never seeing a fresh command because the master is
// still waiting on a lost reply would stall the whole bus. A still-pending
// request when a new round starts means last round's reply never came back.
func (p *LogicalProcessData) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if p.pending {
		p.OnLost()
	}
	p.pending = true
	copy(buf[:p.imageSize], p.image)
	return ethercat.NewLogicalCommand(p.logicalAddress), p.imageSize, true
}

func (p *LogicalProcessData) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	p.pending = false
	copy(p.image, payload[:p.imageSize])
	if wkc != p.expectedWkc {
		p.invalidWkcSeen++
	}
}

// OnLost records a cycle whose datagram never came back at all (dropped by
// TransmitOneFrame/ReceiveOneFrame before a reply matched this socket).
func (p *LogicalProcessData) OnLost() { p.lostDatagrams++ }

func (p *LogicalProcessData) IsFinished() bool { return false }

func (p *LogicalProcessData) InvalidWkcCount() uint64 { return p.invalidWkcSeen }
func (p *LogicalProcessData) LostDatagramCount() uint64 { return p.lostDatagrams }
