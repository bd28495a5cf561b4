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

func TestRegReadSucceedsAfterOneLostReply(t *testing.T) {
	sl := virtual.NewSlave(0, 0x1000)
	sl.Registers[ethercat.RegDLStatus] = 0x01
	seg := virtual.NewSegment(sl)
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)

	target := ethercat.Single(ethercat.ByPosition(0))
	r := task.NewRegRead(target, ethercat.RegDLStatus, 2)

	// Round 1: the first request goes out.
	_, err := ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, r, ethercat.SystemTime(0))
	assert.Equal(t, uint64(0), r.LostReplyCount())

	// Round 2: that request is transmitted but never comes back.
	dev.SetDropAll(true)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, r, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), r.LostReplyCount(), "the dropped round must be counted on the very next poll, not after a long timeout")

	// Round 3 onward: the link recovers; Block drives the reissued request home.
	dev.SetDropAll(false)
	err = task.Block(ss, sock, task.ClockFunc(func() ethercat.SystemTime { return 0 }), r, task.RegisterOpIterations)
	assert.NoError(t, err)
	assert.True(t, r.IsFinished())
	assert.Equal(t, uint64(1), r.LostReplyCount())
	assert.Equal(t, byte(0x01), r.Payload()[0])
}

func TestRegWriteTimesOutFastWhenReplyNeverArrives(t *testing.T) {
	sl := virtual.NewSlave(0, 0x1000)
	seg := virtual.NewSegment(sl)
	dev := seg.NewDevice(1514)
	dev.SetDropAll(true)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)

	target := ethercat.Single(ethercat.ByPosition(0))
	w := task.NewRegWrite(target, ethercat.RegDLControl, []byte{0, 0})

	err := task.Block(ss, sock, task.ClockFunc(func() ethercat.SystemTime { return 0 }), w, task.RegisterOpIterations)
	assert.ErrorIs(t, err, ethercat.ErrTimeout)
	assert.False(t, w.IsFinished())
	assert.True(t, w.LostReplyCount() > 0, "every dropped round must be visible, not just the eventual timeout")
}
