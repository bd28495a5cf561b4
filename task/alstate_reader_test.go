package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/iface"
	"github.com/samsamfire/goethercat/rawsock/virtual"
	"github.com/samsamfire/goethercat/socket"
	"github.com/samsamfire/goethercat/task"
)

var masterMAC = [6]byte{0x02, 0, 0, 0, 0, 0x01}

type fixedClock ethercat.SystemTime

func (c fixedClock) Now() ethercat.SystemTime { return ethercat.SystemTime(c) }

func newRing(slaves ...*virtual.Slave) (*socket.SocketSet, *socket.Socket) {
	seg := virtual.NewSegment(slaves...)
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)
	return ss, sock
}

func allSlavesAtState(n int, state ethercat.AlState) []*virtual.Slave {
	slaves := make([]*virtual.Slave, n)
	for i := 0; i < n; i++ {
		s := virtual.NewSlave(uint16(i), 0x200)
		s.Registers[0x0130] = byte(state)
		slaves[i] = s
	}
	return slaves
}

func TestAlStateReaderBroadcastAllHealthy(t *testing.T) {
	slaves := allSlavesAtState(3, ethercat.AlStatePreOp)
	ss, sock := newRing(slaves...)

	reader := task.NewAlStateReader(ethercat.All(3))
	err := task.Block(ss, sock, fixedClock(0), reader, 100)
	assert.NoError(t, err)

	result := reader.Result()
	assert.Equal(t, ethercat.AlStatePreOp, result.State)
	assert.Nil(t, result.StatusCode)
	assert.False(t, reader.WkcMismatch())
}

func TestAlStateReaderReportsErrorStatusCode(t *testing.T) {
	slaves := allSlavesAtState(3, ethercat.AlStatePreOp)
	// One slave reports the error bit set plus a status code; BRD ORs the
	// register bytes together across all three slaves.
	slaves[1].Registers[0x0130] = byte(ethercat.AlStatePreOp) | 0x10
	slaves[1].Registers[0x0130+4] = 0x1E
	slaves[1].Registers[0x0130+5] = 0x00
	ss, sock := newRing(slaves...)

	reader := task.NewAlStateReader(ethercat.All(3))
	err := task.Block(ss, sock, fixedClock(0), reader, 100)
	assert.NoError(t, err)

	result := reader.Result()
	assert.Equal(t, ethercat.AlStatePreOp, result.State)
	assert.NotNil(t, result.StatusCode)
	assert.Equal(t, ethercat.AlStatusInvalidInputConfig, *result.StatusCode)
	assert.False(t, reader.WkcMismatch())
}

func TestAlStateReaderTimeoutOnLostReplies(t *testing.T) {
	seg := virtual.NewSegment(virtual.NewSlave(0, 0x200))
	dev := seg.NewDevice(1514)
	dev.SetDropAll(true)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)

	reader := task.NewAlStateReader(ethercat.All(1))
	err := task.Block(ss, sock, fixedClock(0), reader, 50)
	assert.ErrorIs(t, err, ethercat.ErrTimeout)
}
