package frame

// Datagram is one parsed datagram from a received frame: its header view,
// its payload slice, and its trailing working counter, all borrowed from the
// frame buffer.
type Datagram struct {
	Header  DatagramHeader
	Payload []byte
	Wkc     Wkc
}

// Iterator walks the datagrams embedded in a received frame (the dlpdus
// walk). It stops when the fieldbus header's declared length is exhausted.
type Iterator struct {
	buf      []byte
	offset   int
	totalLen int
}

// NewIterator validates the Ethernet and EC headers of buf and returns an
// Iterator over its datagrams. ok is false if buf is too short, is not a
// fieldbus command frame, or its declared length overruns buf.
func NewIterator(buf []byte) (it Iterator, ok bool) {
	if len(buf) < DatagramsOffset {
		return Iterator{}, false
	}
	eth := EthernetHeader(buf[:EthernetHeaderSize])
	if eth.EtherType() != EtherCatEtherType {
		return Iterator{}, false
	}
	ec := EcHeader(buf[EthernetHeaderSize:DatagramsOffset])
	if ec.Type() != ecFrameTypeCommand {
		return Iterator{}, false
	}
	total := int(ec.Length())
	if DatagramsOffset+total > len(buf) {
		return Iterator{}, false
	}
	return Iterator{buf: buf, totalLen: total}, true
}

// Next returns the next datagram and true, or a zero Datagram and false when
// the frame's datagrams are exhausted.
func (it *Iterator) Next() (Datagram, bool) {
	if it.offset+DatagramHeaderSize+WkcSize > it.totalLen {
		return Datagram{}, false
	}
	base := DatagramsOffset + it.offset
	header := DatagramHeader(it.buf[base : base+DatagramHeaderSize])
	size := int(header.Length())
	payloadStart := base + DatagramHeaderSize
	if it.offset+DatagramHeaderSize+size+WkcSize > it.totalLen {
		return Datagram{}, false
	}
	payload := it.buf[payloadStart : payloadStart+size]
	wkc := Wkc(it.buf[payloadStart+size : payloadStart+size+WkcSize])

	it.offset += DatagramHeaderSize + size + WkcSize
	return Datagram{Header: header, Payload: payload, Wkc: wkc}, true
}
