package task_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/iface"
	"github.com/samsamfire/goethercat/rawsock/virtual"
	"github.com/samsamfire/goethercat/socket"
	"github.com/samsamfire/goethercat/task"
)

func TestDcDriftCompensatorReissuesAfterLostReply(t *testing.T) {
	sl := virtual.NewSlave(0, 0x1000)
	binary.LittleEndian.PutUint64(sl.Registers[ethercat.RegDcSystemTime:], 1000)
	seg := virtual.NewSegment(sl)
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)

	c := task.NewDcDriftCompensator(1)

	_, err := ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, c, ethercat.SystemTime(0))
	assert.Equal(t, uint64(0), c.LostReplyCount())

	dev.SetDropAll(true)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, c, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), c.LostReplyCount())

	dev.SetDropAll(false)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, c, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), c.LostReplyCount())
	assert.Equal(t, int64(1000), c.SysTimeOffset())
}
