package frame

import (
	"encoding/binary"

	ethercat "github.com/samsamfire/goethercat"
)

// DatagramHeader is a view over the 10-byte header that prefixes every
// datagram: command-type(8), index(8), address-page(16), address-offset(16),
// length(11)+reserved(3)+circulating(1)+more-follows(1), interrupt(16).
type DatagramHeader []byte

const (
	lenMask        = 0x07FF
	circulatingBit = 1 << 14
	moreBit        = 1 << 15
)

func (h DatagramHeader) Command() ethercat.CommandType { return ethercat.CommandType(h[0]) }
func (h DatagramHeader) Index() uint8                  { return h[1] }
func (h DatagramHeader) AddressPage() uint16           { return binary.LittleEndian.Uint16(h[2:4]) }
func (h DatagramHeader) AddressOffset() uint16         { return binary.LittleEndian.Uint16(h[4:6]) }

func (h DatagramHeader) lenField() uint16 { return binary.LittleEndian.Uint16(h[6:8]) }

func (h DatagramHeader) Length() uint16      { return h.lenField() & lenMask }
func (h DatagramHeader) Circulating() bool   { return h.lenField()&circulatingBit != 0 }
func (h DatagramHeader) More() bool          { return h.lenField()&moreBit != 0 }
func (h DatagramHeader) Interrupt() uint16   { return binary.LittleEndian.Uint16(h[8:10]) }

func (h DatagramHeader) SetCommand(c ethercat.CommandType) { h[0] = byte(c) }
func (h DatagramHeader) SetIndex(i uint8)                  { h[1] = i }

func (h DatagramHeader) SetAddressPage(v uint16) {
	binary.LittleEndian.PutUint16(h[2:4], v)
}

func (h DatagramHeader) SetAddressOffset(v uint16) {
	binary.LittleEndian.PutUint16(h[4:6], v)
}

func (h DatagramHeader) SetLength(length uint16) {
	v := (h.lenField() &^ lenMask) | (length & lenMask)
	binary.LittleEndian.PutUint16(h[6:8], v)
}

func (h DatagramHeader) SetMore(more bool) {
	v := h.lenField() &^ uint16(moreBit)
	if more {
		v |= moreBit
	}
	binary.LittleEndian.PutUint16(h[6:8], v)
}

func (h DatagramHeader) SetCirculating(c bool) {
	v := h.lenField() &^ uint16(circulatingBit)
	if c {
		v |= circulatingBit
	}
	binary.LittleEndian.PutUint16(h[6:8], v)
}

func (h DatagramHeader) SetInterrupt(v uint16) {
	binary.LittleEndian.PutUint16(h[8:10], v)
}

// Init writes cmd's command-type and address fields, zeroes circulating and
// interrupt, sets length and index, and leaves more-follows false (the
// builder sets it on every datagram but the last).
func (h DatagramHeader) Init(index uint8, cmd ethercat.Command, length uint16) {
	h.SetCommand(cmd.Type)
	h.SetIndex(index)
	h.SetAddressPage(cmd.AddressPage)
	h.SetAddressOffset(cmd.AddressOffset)
	h.SetLength(length)
	h.SetCirculating(false)
	h.SetMore(false)
	h.SetInterrupt(0)
}

// Wkc is the 2-byte working counter that trails a datagram's payload.
type Wkc []byte

func (w Wkc) Value() uint16      { return binary.LittleEndian.Uint16(w) }
func (w Wkc) SetValue(v uint16)  { binary.LittleEndian.PutUint16(w, v) }
