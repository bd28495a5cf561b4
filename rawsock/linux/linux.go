// Package linux implements rawsock.Device over an AF_PACKET/SOCK_RAW socket
// bound to a network interface, the real transport used in production.
package linux

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/samsamfire/goethercat/frame"
	"github.com/samsamfire/goethercat/rawsock"
)

func init() {
	rawsock.Register("linux", NewDevice)
}

// htons converts a uint16 from host to network byte order.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

// Device is a non-blocking AF_PACKET raw socket bound to one interface,
// filtered to the fieldbus EtherType so ordinary IP traffic never reaches
// the engine.
type Device struct {
	fd      int
	ifindex int
	txBuf   []byte
	txOut   bool
}

// NewDevice opens a raw socket on the named interface (e.g. "eth0"). The
// interface must already be up; no address configuration is performed.
func NewDevice(name string) (rawsock.Device, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("rawsock/linux: %w", err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(frame.EtherCatEtherType)))
	if err != nil {
		return nil, fmt.Errorf("rawsock/linux: open socket: %w", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(frame.EtherCatEtherType),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rawsock/linux: bind %s: %w", name, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rawsock/linux: set nonblocking: %w", err)
	}

	return &Device{fd: fd, ifindex: iface.Index, txBuf: make([]byte, frame.MTU)}, nil
}

func (d *Device) TxBuffer(size int) ([]byte, bool) {
	if d.txOut || size > len(d.txBuf) {
		return nil, false
	}
	d.txOut = true
	return d.txBuf[:size], true
}

func (d *Device) Send(f []byte) error {
	d.txOut = false
	err := unix.Sendto(d.fd, f, 0, &unix.SockaddrLinklayer{Ifindex: d.ifindex})
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return rawsockBusy
	}
	return err
}

func (d *Device) Recv(buf []byte) (int, bool, error) {
	n, _, err := unix.Recvfrom(d.fd, buf, 0)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Close releases the underlying socket.
func (d *Device) Close() error { return unix.Close(d.fd) }

var rawsockBusy = fmt.Errorf("rawsock/linux: socket send buffer full, retry")
