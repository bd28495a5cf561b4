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

func TestLogicalProcessDataReissuesAfterLostReply(t *testing.T) {
	sl := virtual.NewSlave(0, 0x200)
	sl.Fmmus = []virtual.FmmuMap{{LogicalAddr: 0x1000, PhysicalAddr: 0x100, Length: 2, Write: false}}
	seg := virtual.NewSegment(sl)
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)
	ss := socket.NewSocketSet(ifc, 8)
	sock := socket.NewSocket(64)
	ss.Insert(sock)

	p := task.NewLogicalProcessData(0x1000, 2, 1)

	// Round 1: nothing pending yet, NextPDU issues the first exchange.
	_, err := ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, p, ethercat.SystemTime(0))
	assert.Equal(t, uint64(0), p.LostDatagramCount())

	// Round 2: that datagram is transmitted but never comes back.
	dev.SetDropAll(true)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, p, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), p.LostDatagramCount(), "a lost reply must be counted, not silently ignored")

	// Round 3: the link recovers; the reissued request must still be
	// outstanding, not abandoned by the earlier loss.
	dev.SetDropAll(false)
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, p, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), p.LostDatagramCount(), "exchange must resume cleanly once replies return")

	// Round 4: one more healthy round confirms the task never latched into
	// a permanent no-request state.
	_, err = ss.PollTxRx()
	assert.NoError(t, err)
	task.ProcessOneStep(sock, p, ethercat.SystemTime(0))
	assert.Equal(t, uint64(1), p.LostDatagramCount())
}
