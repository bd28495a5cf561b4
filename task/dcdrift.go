package task

import (
	"encoding/binary"

	ethercat "github.com/samsamfire/goethercat"
)

// DcDriftCompensator issues one auto-increment-read-multiple-write to the
// first distributed-clock slave's system-time register every cycle.
// It never fails: a working-counter mismatch only increments a
// counter, since losing one cycle's sample doesn't matter to the running
// offset estimate.
type DcDriftCompensator struct {
	expectedWkc uint16

	pending bool

	sysTimeOffset  int64
	invalidWkcSeen uint64
	lostReplies    uint64
}

// NewDcDriftCompensator builds a compensator expecting expectedWkc replies
// (the number of DC-capable slaves on the segment).
func NewDcDriftCompensator(expectedWkc uint16) *DcDriftCompensator {
	return &DcDriftCompensator{expectedWkc: expectedWkc}
}

// NextPDU always reissues: a request still pending when a new round starts
// means last round's reply never came back, so it only counts as a loss and
// is retried, never as a reason to stop driving this slot.
func (c *DcDriftCompensator) NextPDU(buf []byte) (ethercat.Command, int, bool) {
	if c.pending {
		c.lostReplies++
	}
	c.pending = true
	return ethercat.NewArmwCommand(0, ethercat.RegDcSystemTime), 8, true
}

func (c *DcDriftCompensator) OnReply(payload []byte, wkc uint16, now ethercat.SystemTime) {
	c.pending = false
	if wkc != c.expectedWkc {
		c.invalidWkcSeen++
		return
	}
	slaveTime := int64(binary.LittleEndian.Uint64(payload[:8]))
	c.sysTimeOffset = slaveTime - int64(now)
}

// IsFinished is always false: this is a steady-state task the master façade
// drives every cycle, never a one-shot setup step.
func (c *DcDriftCompensator) IsFinished() bool { return false }

func (c *DcDriftCompensator) SysTimeOffset() int64    { return c.sysTimeOffset }
func (c *DcDriftCompensator) InvalidWkcCount() uint64 { return c.invalidWkcSeen }
func (c *DcDriftCompensator) LostReplyCount() uint64  { return c.lostReplies }
