package frame

import (
	ethercat "github.com/samsamfire/goethercat"
)

// Builder assembles one Ethernet frame carrying one or more datagrams into a
// caller-owned buffer. It never allocates: every byte written lands directly
// in buf.
type Builder struct {
	buf        []byte
	srcMAC     [6]byte
	cap        int // usable capacity, <= len(buf) and <= MTU
	used       int // bytes used for datagrams so far (excludes Ethernet+EC headers)
	lastHeader DatagramHeader
	eth        EthernetHeader
	ec         EcHeader
}

// NewBuilder wraps buf (which must be at least DatagramsOffset+WkcSize bytes
// long) and lays down the Ethernet and EC headers. capacity, if non-zero and
// smaller than len(buf), further restricts how much datagram payload the
// builder will accept (used to cap a frame below the interface MTU).
func NewBuilder(buf []byte, srcMAC [6]byte, capacity int) *Builder {
	if capacity <= 0 || capacity > len(buf) {
		capacity = len(buf)
	}
	if capacity > MTU {
		capacity = MTU
	}
	b := &Builder{buf: buf, srcMAC: srcMAC, cap: capacity}
	b.Reset()
	return b
}

// Reset discards any queued datagrams and re-lays the Ethernet and EC
// headers, so the same Builder (and its backing buffer) can be reused every
// cycle without allocating.
func (b *Builder) Reset() {
	b.used = 0
	b.lastHeader = nil
	b.eth, b.ec = NewEthernetFrame(b.buf, b.srcMAC)
}

// RemainingCapacity is the number of payload bytes one more datagram could
// carry, accounting for that datagram's own header and trailing WKC.
func (b *Builder) RemainingCapacity() int {
	room := b.cap - DatagramsOffset - b.used - WkcSize
	room -= DatagramHeaderSize
	if room < 0 {
		return 0
	}
	return room
}

// AddPDU appends one datagram addressed by cmd, with a payload of size
// bytes. write is invoked with the zero-initialized payload slice so the
// caller can fill it in place. Returns false without modifying the builder
// if the datagram would not fit.
func (b *Builder) AddPDU(index uint8, cmd ethercat.Command, size int, write func([]byte)) bool {
	need := DatagramHeaderSize + size + WkcSize
	if need > b.cap-DatagramsOffset-b.used {
		return false
	}

	start := DatagramsOffset + b.used
	header := DatagramHeader(b.buf[start : start+DatagramHeaderSize])
	payload := b.buf[start+DatagramHeaderSize : start+DatagramHeaderSize+size]
	for i := range payload {
		payload[i] = 0
	}
	if write != nil {
		write(payload)
	}
	wkc := Wkc(b.buf[start+DatagramHeaderSize+size : start+need])
	wkc.SetValue(0)

	header.Init(index, cmd, uint16(size))
	if b.lastHeader != nil {
		b.lastHeader.SetMore(true)
	}
	b.lastHeader = header
	b.used += need
	return true
}

// Empty reports whether no datagram has been added yet.
func (b *Builder) Empty() bool { return b.used == 0 }

// Finish writes the fieldbus header's total length and returns the complete
// frame slice ready for transmission.
func (b *Builder) Finish() []byte {
	b.ec.SetLength(uint16(b.used))
	return b.buf[:DatagramsOffset+b.used]
}
