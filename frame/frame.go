// Package frame implements bit-exact accessor views over borrowed byte
// buffers for every wire header the protocol defines: the Ethernet header,
// the fieldbus frame header, the per-datagram header, the mailbox header and
// the CoE service header. Views never allocate or copy; they index directly
// into the buffer they are constructed from.
package frame

import (
	"encoding/binary"
)

const (
	EthernetHeaderSize = 14
	EcHeaderSize       = 2
	DatagramHeaderSize = 10
	WkcSize            = 2
	MailboxHeaderSize  = 6
	ServiceHeaderSize  = 8

	// MTU is the largest Ethernet frame (header + payload, no FCS) the
	// interface will build or accept.
	MTU = 1514

	EtherCatEtherType uint16 = 0x88A4
	ecFrameTypeCommand uint8  = 1
)

// MaxDatagramData is the per-datagram payload ceiling derived from the MTU:
// one frame can carry exactly one datagram at the absolute worst case
// (Ethernet header + EC header + one datagram header + payload + WKC).
const MaxDatagramData = MTU - EthernetHeaderSize - EcHeaderSize - DatagramHeaderSize - WkcSize

var BroadcastMAC = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// EthernetHeader is a view over the first EthernetHeaderSize bytes of a
// frame buffer.
type EthernetHeader []byte

func (h EthernetHeader) DstMAC() (mac [6]byte) {
	copy(mac[:], h[0:6])
	return
}

func (h EthernetHeader) SrcMAC() (mac [6]byte) {
	copy(mac[:], h[6:12])
	return
}

func (h EthernetHeader) EtherType() uint16 {
	return binary.BigEndian.Uint16(h[12:14])
}

func (h EthernetHeader) SetDstMAC(mac [6]byte) { copy(h[0:6], mac[:]) }
func (h EthernetHeader) SetSrcMAC(mac [6]byte) { copy(h[6:12], mac[:]) }
func (h EthernetHeader) SetEtherType(t uint16) { binary.BigEndian.PutUint16(h[12:14], t) }

// EcHeader is the 2-byte fieldbus frame header: bits 0-10 are the total
// length in bytes of the embedded datagrams, bits 12-15 are the frame type
// (1 = command frame).
type EcHeader []byte

func (h EcHeader) raw() uint16 { return binary.LittleEndian.Uint16(h) }

func (h EcHeader) Length() uint16 { return h.raw() & 0x07FF }

func (h EcHeader) Type() uint8 { return uint8(h.raw() >> 12) }

func (h EcHeader) SetLength(length uint16) {
	v := (h.raw() &^ 0x07FF) | (length & 0x07FF)
	binary.LittleEndian.PutUint16(h, v)
}

func (h EcHeader) SetType(t uint8) {
	v := (h.raw() &^ 0xF000) | (uint16(t) << 12)
	binary.LittleEndian.PutUint16(h, v)
}

// NewEthernetFrame lays down the Ethernet and EC headers at the start of buf
// (which must be at least EthernetHeaderSize+EcHeaderSize bytes) and returns
// views over each.
func NewEthernetFrame(buf []byte, srcMAC [6]byte) (EthernetHeader, EcHeader) {
	eth := EthernetHeader(buf[:EthernetHeaderSize])
	eth.SetDstMAC(BroadcastMAC)
	eth.SetSrcMAC(srcMAC)
	eth.SetEtherType(EtherCatEtherType)
	ec := EcHeader(buf[EthernetHeaderSize : EthernetHeaderSize+EcHeaderSize])
	ec.SetType(ecFrameTypeCommand)
	ec.SetLength(0)
	return eth, ec
}

// DatagramsOffset is the byte offset into a complete frame buffer at which
// the first datagram header begins.
const DatagramsOffset = EthernetHeaderSize + EcHeaderSize
