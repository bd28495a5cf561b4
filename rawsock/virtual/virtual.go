// Package virtual simulates a daisy-chained segment of slaves entirely
// in-process for hermetic tests, modeled as a synchronous ring rather than a
// socket so no goroutine or real clock is involved: a frame handed to Send
// is walked through every slave's register file before being queued for the
// next Recv.
package virtual

import (
	"github.com/samsamfire/goethercat/frame"

	ethercat "github.com/samsamfire/goethercat"
)

// FmmuMap is one logical-to-physical mapping a simulated slave honors for
// LRD/LWR/LRW traffic, mirroring the FMMU configuration the PDO-image
// configuration would program onto real hardware.
type FmmuMap struct {
	LogicalAddr   uint32
	PhysicalAddr  uint16
	Length        uint16
	Write         bool // true: RxPDO, master writes into the slave
}

// Slave is a simulated slave's register file: a flat byte-addressed memory
// plus whatever FMMU ranges have been configured onto it.
type Slave struct {
	Position       uint16
	StationAddress uint16
	Registers      []byte
	Fmmus          []FmmuMap

	// OnWrite, if set, is invoked after a successful register write with
	// the offset and bytes written, letting a test simulate device
	// behavior (e.g. adopting a requested AL state) instead of a plain
	// pass-through register file.
	OnWrite func(offset uint16, data []byte)
}

// NewSlave allocates a slave with a registerSize-byte register file at the
// given ring position; its station address defaults to position+1 as the
// network initializer assigns during bring-up.
func NewSlave(position uint16, registerSize int) *Slave {
	return &Slave{
		Position:       position,
		StationAddress: position + 1,
		Registers:      make([]byte, registerSize),
	}
}

func (s *Slave) read(offset uint16, n int) ([]byte, bool) {
	if int(offset)+n > len(s.Registers) {
		return nil, false
	}
	return s.Registers[offset : int(offset)+n], true
}

func (s *Slave) write(offset uint16, data []byte) bool {
	if int(offset)+len(data) > len(s.Registers) {
		return false
	}
	copy(s.Registers[offset:], data)
	if s.OnWrite != nil {
		s.OnWrite(offset, data)
	}
	return true
}

// Segment is an ordered ring of slaves a frame is walked through.
type Segment struct {
	slaves []*Slave
}

// NewSegment builds a segment from slaves in ring order (position 0 first).
func NewSegment(slaves ...*Slave) *Segment {
	return &Segment{slaves: slaves}
}

func (seg *Segment) Slaves() []*Slave { return seg.slaves }

func isPositional(cmd ethercat.CommandType) bool {
	switch cmd {
	case ethercat.CmdAPRD, ethercat.CmdAPWR, ethercat.CmdAPRW, ethercat.CmdARMW:
		return true
	default:
		return false
	}
}

func (seg *Segment) find(cmd ethercat.CommandType, page uint16) *Slave {
	if isPositional(cmd) {
		position := uint16(-int32(page))
		for _, sl := range seg.slaves {
			if sl.Position == position {
				return sl
			}
		}
		return nil
	}
	for _, sl := range seg.slaves {
		if sl.StationAddress == page {
			return sl
		}
	}
	return nil
}

func (seg *Segment) process(buf []byte) {
	it, ok := frame.NewIterator(buf)
	if !ok {
		return
	}
	for {
		dg, ok := it.Next()
		if !ok {
			break
		}
		seg.apply(dg)
	}
}

func (seg *Segment) apply(dg frame.Datagram) {
	cmd := dg.Header.Command()
	page := dg.Header.AddressPage()
	offset := dg.Header.AddressOffset()

	switch cmd {
	case ethercat.CmdBRD:
		var merged []byte
		var wkc uint16
		for _, sl := range seg.slaves {
			data, ok := sl.read(offset, len(dg.Payload))
			if !ok {
				continue
			}
			if merged == nil {
				merged = append([]byte(nil), data...)
			} else {
				for i := range merged {
					merged[i] |= data[i]
				}
			}
			wkc++
		}
		if merged != nil {
			copy(dg.Payload, merged)
		}
		dg.Wkc.SetValue(dg.Wkc.Value() + wkc)

	case ethercat.CmdBWR:
		var wkc uint16
		for _, sl := range seg.slaves {
			if sl.write(offset, dg.Payload) {
				wkc++
			}
		}
		dg.Wkc.SetValue(dg.Wkc.Value() + wkc)

	case ethercat.CmdAPRD, ethercat.CmdFPRD:
		sl := seg.find(cmd, page)
		if sl == nil {
			return
		}
		if data, ok := sl.read(offset, len(dg.Payload)); ok {
			copy(dg.Payload, data)
			dg.Wkc.SetValue(dg.Wkc.Value() + 1)
		}

	case ethercat.CmdAPWR, ethercat.CmdFPWR:
		sl := seg.find(cmd, page)
		if sl != nil && sl.write(offset, dg.Payload) {
			dg.Wkc.SetValue(dg.Wkc.Value() + 1)
		}

	case ethercat.CmdARMW, ethercat.CmdFRMW:
		target := seg.find(cmd, page)
		var wkc uint16
		for _, sl := range seg.slaves {
			if sl == target {
				if data, ok := sl.read(offset, len(dg.Payload)); ok {
					copy(dg.Payload, data)
					wkc++
				}
				continue
			}
			if sl.write(offset, dg.Payload) {
				wkc++
			}
		}
		dg.Wkc.SetValue(dg.Wkc.Value() + wkc)

	case ethercat.CmdLRD, ethercat.CmdLWR, ethercat.CmdLRW:
		logical := uint32(page) | uint32(offset)<<16
		var wkc uint16
		for _, sl := range seg.slaves {
			for _, m := range sl.Fmmus {
				if m.LogicalAddr != logical {
					continue
				}
				n := int(m.Length)
				if n > len(dg.Payload) {
					n = len(dg.Payload)
				}
				if m.Write && cmd != ethercat.CmdLRD {
					copy(sl.Registers[m.PhysicalAddr:], dg.Payload[:n])
					wkc++
				}
				if !m.Write && cmd != ethercat.CmdLWR {
					copy(dg.Payload[:n], sl.Registers[m.PhysicalAddr:int(m.PhysicalAddr)+n])
					wkc++
				}
			}
		}
		dg.Wkc.SetValue(dg.Wkc.Value() + wkc)
	}
}

// Device is a rawsock.Device backed by a Segment: Send walks the frame
// through every slave synchronously and queues the result for the next
// Recv, simulating the frame's return trip to the master's NIC. The returned
// frame's source MAC has its locally-administered bit toggled, as the first
// slave does on real hardware, so the PDU interface does not mistake it for
// its own transmission looping back.
type Device struct {
	seg     *Segment
	scratch []byte
	txOut   bool
	rxQueue [][]byte
	dropAll bool
}

// NewDevice builds a Device over seg with a scratch buffer sized to mtu.
func (seg *Segment) NewDevice(mtu int) *Device {
	return &Device{seg: seg, scratch: make([]byte, mtu)}
}

// SetDropAll makes every subsequent Send vanish without a reply, simulating
// a link that drops all traffic.
func (d *Device) SetDropAll(drop bool) { d.dropAll = drop }

func (d *Device) TxBuffer(size int) ([]byte, bool) {
	if d.txOut || size > len(d.scratch) {
		return nil, false
	}
	d.txOut = true
	return d.scratch[:size], true
}

func (d *Device) Send(f []byte) error {
	d.txOut = false
	if d.dropAll {
		return nil
	}
	out := make([]byte, len(f))
	copy(out, f)
	d.seg.process(out)
	out[6] ^= 0x02 // source MAC, first byte: locally-administered bit
	d.rxQueue = append(d.rxQueue, out)
	return nil
}

func (d *Device) Recv(buf []byte) (int, bool, error) {
	if len(d.rxQueue) == 0 {
		return 0, false, nil
	}
	next := d.rxQueue[0]
	d.rxQueue = d.rxQueue[1:]
	return copy(buf, next), true, nil
}
