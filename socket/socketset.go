package socket

import (
	"github.com/samsamfire/goethercat/iface"

	ethercat "github.com/samsamfire/goethercat"
)

// SocketSet is a fixed-size sparse table of sockets multiplexed onto one PDU
// interface. Datagram index equals socket index.
type SocketSet struct {
	ifc     *iface.Interface
	sockets []*Socket
}

// NewSocketSet builds a SocketSet with capacity socket slots over ifc.
func NewSocketSet(ifc *iface.Interface, capacity int) *SocketSet {
	return &SocketSet{ifc: ifc, sockets: make([]*Socket, capacity)}
}

// Insert places s in the first free slot and returns its handle. ok is
// false if the table is full.
func (ss *SocketSet) Insert(s *Socket) (handle int, ok bool) {
	for i, slot := range ss.sockets {
		if slot == nil {
			ss.sockets[i] = s
			return i, true
		}
	}
	return 0, false
}

// Remove clears the socket at handle.
func (ss *SocketSet) Remove(handle int) {
	if handle >= 0 && handle < len(ss.sockets) {
		ss.sockets[handle] = nil
	}
}

// Get returns the socket at handle, or nil if the slot is empty or out of
// range.
func (ss *SocketSet) Get(handle int) *Socket {
	if handle < 0 || handle >= len(ss.sockets) {
		return nil
	}
	return ss.sockets[handle]
}

// PollTxRx performs one enqueue-transmit-receive-deliver round. It returns
// true iff every pending socket was enqueued and the frame completed both
// transmit and receive this round.
func (ss *SocketSet) PollTxRx() (bool, error) {
	complete := true

	for index, s := range ss.sockets {
		if s == nil || !s.HasPending() {
			continue
		}
		cmd, payload, ok := s.TakePDU()
		if !ok {
			continue
		}
		err := ss.ifc.AddPDU(uint8(index), cmd, len(payload), func(buf []byte) {
			copy(buf, payload)
		})
		if err != nil {
			complete = false
			break
		}
	}

	txDone, err := ss.ifc.TransmitOneFrame()
	if err != nil {
		if err == ethercat.ErrBusy {
			return false, nil
		}
		return false, err
	}
	if !txDone {
		complete = false
	}

	rxDone, err := ss.ifc.ReceiveOneFrame()
	if err != nil {
		return false, err
	}
	if !rxDone {
		complete = false
	}

	it, ok := ss.ifc.ConsumePDUs()
	if ok {
		for {
			dg, ok := it.Next()
			if !ok {
				break
			}
			idx := int(dg.Header.Index())
			if idx < 0 || idx >= len(ss.sockets) || ss.sockets[idx] == nil {
				continue
			}
			ss.sockets[idx].Receive(dg)
		}
	}

	return complete, nil
}
