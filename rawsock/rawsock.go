// Package rawsock defines the raw-Ethernet device contract the PDU
// interface drives, plus a registry of pluggable implementations selected
// by kind name.
package rawsock

import (
	"fmt"
)

// Device is the non-blocking raw-Ethernet primitive the PDU interface polls
// every cycle. Every method must return immediately: a device with nothing
// to send or nothing received reports ok=false rather than blocking.
type Device interface {
	// TxBuffer returns a buffer of at least size bytes for the caller to
	// fill with one outgoing Ethernet frame, or ok=false if the device has
	// no free transmit slot right now (Busy; retry next call).
	TxBuffer(size int) (buf []byte, ok bool)

	// Send transmits frame, which must be a slice previously returned by
	// TxBuffer (or a prefix of it).
	Send(frame []byte) error

	// Recv copies the next pending received frame into buf and returns its
	// length, or ok=false if nothing has arrived. Recv never blocks.
	Recv(buf []byte) (n int, ok bool, err error)
}

// NewDeviceFunc constructs a Device bound to the given network interface
// name (e.g. "eth0").
type NewDeviceFunc func(name string) (Device, error)

var registry = make(map[string]NewDeviceFunc)

// Register adds a named Device implementation to the registry. Called from
// an implementation package's init().
func Register(kind string, ctor NewDeviceFunc) {
	registry[kind] = ctor
}

// New constructs a Device of the registered kind bound to name. The only
// kind that registers itself is "linux" (AF_PACKET/SOCK_RAW); the in-process
// simulated segment in rawsock/virtual is not registered and its Device is
// built directly from a Segment.
func New(kind, name string) (Device, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("rawsock: unregistered device kind %q", kind)
	}
	return ctor(name)
}
