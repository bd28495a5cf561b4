// Package iface implements the PDU interface: the non-blocking boundary
// between queued datagrams and the raw-Ethernet device, owning a TX scratch
// buffer and demultiplexing received frames back into datagrams.
package iface

import (
	"github.com/samsamfire/goethercat/frame"
	"github.com/samsamfire/goethercat/rawsock"

	ethercat "github.com/samsamfire/goethercat"
)

// Interface is the PDU interface described by the protocol: it owns the TX
// scratch buffer and the raw-Ethernet device, and batches every datagram
// queued via AddPDU into one Ethernet frame per TransmitOneFrame call.
type Interface struct {
	device rawsock.Device
	srcMAC [6]byte

	txBuf   []byte
	builder *frame.Builder

	rxBuf    []byte
	rxLen    int
	hasFrame bool
}

// New builds an Interface over device with the given source MAC and a
// scratch capacity of mtu bytes (frame.MTU if mtu is 0 or exceeds it).
func New(device rawsock.Device, srcMAC [6]byte, mtu int) *Interface {
	if mtu <= 0 || mtu > frame.MTU {
		mtu = frame.MTU
	}
	i := &Interface{
		device: device,
		srcMAC: srcMAC,
		txBuf:  make([]byte, mtu),
		rxBuf:  make([]byte, mtu),
	}
	i.builder = frame.NewBuilder(i.txBuf, srcMAC, mtu)
	return i
}

// RemainingPDUDataCapacity is the payload headroom left for one more
// datagram in the frame currently being assembled.
func (i *Interface) RemainingPDUDataCapacity() int {
	return i.builder.RemainingCapacity()
}

// AddPDU appends one datagram to the frame under assembly. write is called
// with the zero-initialized payload slice. Returns ErrFrameCapacity if the
// datagram would not fit.
func (i *Interface) AddPDU(index uint8, cmd ethercat.Command, size int, write func([]byte)) error {
	if !i.builder.AddPDU(index, cmd, size, write) {
		return ethercat.ErrFrameCapacity
	}
	return nil
}

// TransmitOneFrame hands the assembled frame to the device. done is true
// once the frame (if any was queued) has been transmitted; the builder is
// reset for the next round. Returns ErrBusy without resetting if the device
// has no free transmit slot, so the caller retries on the next call.
func (i *Interface) TransmitOneFrame() (done bool, err error) {
	if i.builder.Empty() {
		return true, nil
	}
	out := i.builder.Finish()
	txBuf, ok := i.device.TxBuffer(len(out))
	if !ok {
		return false, ethercat.ErrBusy
	}
	copy(txBuf, out)
	if err := i.device.Send(txBuf); err != nil {
		return false, err
	}
	i.builder.Reset()
	return true, nil
}

// ReceiveOneFrame demultiplexes one received Ethernet frame, discarding it
// if it is the interface's own transmission looping back (same source MAC)
// or carries a foreign EtherType. It takes at most one frame from the device
// per call and always reports done=true.
func (i *Interface) ReceiveOneFrame() (done bool, err error) {
	i.hasFrame = false
	n, ok, err := i.device.Recv(i.rxBuf)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	if n < frame.DatagramsOffset {
		return true, nil
	}
	eth := frame.EthernetHeader(i.rxBuf[:frame.EthernetHeaderSize])
	if eth.SrcMAC() == i.srcMAC || eth.EtherType() != frame.EtherCatEtherType {
		return true, nil
	}
	i.rxLen = n
	i.hasFrame = true
	return true, nil
}

// ConsumePDUs returns an iterator over the datagrams of the most recently
// received frame, and true, or ok=false if nothing was received since the
// last call.
func (i *Interface) ConsumePDUs() (frame.Iterator, bool) {
	if !i.hasFrame {
		return frame.Iterator{}, false
	}
	i.hasFrame = false
	return frame.NewIterator(i.rxBuf[:i.rxLen])
}
