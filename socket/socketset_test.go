package socket_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/iface"
	"github.com/samsamfire/goethercat/rawsock/virtual"
	"github.com/samsamfire/goethercat/socket"
)

var masterMAC = [6]byte{0x02, 0, 0, 0, 0, 0x01}

func newHarness(slaves ...*virtual.Slave) (*socket.SocketSet, *virtual.Segment) {
	seg := virtual.NewSegment(slaves...)
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)
	return socket.NewSocketSet(ifc, 8), seg
}

func TestPollTxRxDeliversReplyToSocketByIndex(t *testing.T) {
	s0 := virtual.NewSlave(0, 0x100)
	s0.Registers[0x10] = 0x42
	ss, _ := newHarness(s0)

	sock := socket.NewSocket(4)
	handle, ok := ss.Insert(sock)
	assert.True(t, ok)

	cmd := ethercat.NewReadCommand(ethercat.Single(ethercat.ByPosition(0)), 0, 0x10)
	sock.SetPDU(func(buf []byte) (ethercat.Command, int) {
		return cmd, 1
	})

	complete, err := ss.PollTxRx()
	assert.NoError(t, err)
	assert.True(t, complete)

	got := ss.Get(handle)
	payload, wkc, ok := got.GetReceivedPDU()
	assert.True(t, ok)
	assert.Equal(t, uint16(1), wkc)
	assert.Equal(t, byte(0x42), payload[0])
}

func TestPollTxRxIdempotentWithNoPendingSockets(t *testing.T) {
	ss, _ := newHarness(virtual.NewSlave(0, 0x100))
	complete, err := ss.PollTxRx()
	assert.NoError(t, err)
	assert.True(t, complete)

	complete, err = ss.PollTxRx()
	assert.NoError(t, err)
	assert.True(t, complete)
}

func TestPollTxRxMultipleSocketsOrderedByIndex(t *testing.T) {
	s0 := virtual.NewSlave(0, 0x100)
	s0.Registers[0x10] = 0xAA
	s0.Registers[0x20] = 0xBB
	ss, _ := newHarness(s0)

	a := socket.NewSocket(4)
	b := socket.NewSocket(4)
	ha, _ := ss.Insert(a)
	hb, _ := ss.Insert(b)

	cmdA := ethercat.NewReadCommand(ethercat.Single(ethercat.ByPosition(0)), 0, 0x10)
	cmdB := ethercat.NewReadCommand(ethercat.Single(ethercat.ByPosition(0)), 0, 0x20)
	a.SetPDU(func(buf []byte) (ethercat.Command, int) { return cmdA, 1 })
	b.SetPDU(func(buf []byte) (ethercat.Command, int) { return cmdB, 1 })

	complete, err := ss.PollTxRx()
	assert.NoError(t, err)
	assert.True(t, complete)

	pa, _, _ := ss.Get(ha).GetReceivedPDU()
	pb, _, _ := ss.Get(hb).GetReceivedPDU()
	assert.Equal(t, byte(0xAA), pa[0])
	assert.Equal(t, byte(0xBB), pb[0])
}
