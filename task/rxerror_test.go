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

func TestRxErrorReaderReissuesAfterLostReply(t *testing.T) {
	sl := virtual.NewSlave(0, 0x1000)
	sl.Registers[ethercat.RegRxErrorCounter] = 7
	seg := virtual.NewSegment(sl)
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)

	r := task.NewRxErrorReader(ethercat.Single(ethercat.ByPosition(0)))

	_, err := ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, r, ethercat.SystemTime(0))
	assert.Equal(t, uint64(0), r.LostReplyCount())

	dev.SetDropAll(true)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, r, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), r.LostReplyCount())

	dev.SetDropAll(false)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, r, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), r.LostReplyCount())
	assert.Equal(t, uint8(7), r.Port(0))
	assert.False(t, r.WkcMismatch())
}
