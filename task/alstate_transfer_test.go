package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/rawsock/virtual"
	"github.com/samsamfire/goethercat/task"
)

func TestAlStateTransferDrivesToRequestedState(t *testing.T) {
	s := virtual.NewSlave(0, 0x200)
	s.Registers[0x0130] = byte(ethercat.AlStateInit)
	s.OnWrite = func(offset uint16, data []byte) {
		if offset == 0x0120 {
			s.Registers[0x0130] = data[0] &^ 0x10
		}
	}
	ss, sock := newRing(s)

	transfer := task.NewAlStateTransfer(ethercat.Single(ethercat.ByPosition(0)), ethercat.AlStatePreOp)
	err := task.Block(ss, sock, fixedClock(0), transfer, 1000)
	assert.NoError(t, err)
	assert.Nil(t, transfer.Err())
}

func TestAlStateTransferAlreadyAtTarget(t *testing.T) {
	s := virtual.NewSlave(0, 0x200)
	s.Registers[0x0130] = byte(ethercat.AlStateOp)
	ss, sock := newRing(s)

	transfer := task.NewAlStateTransfer(ethercat.Single(ethercat.ByPosition(0)), ethercat.AlStateOp)
	err := task.Block(ss, sock, fixedClock(0), transfer, 10)
	assert.NoError(t, err)
}

func TestAlStateTransferResetsErrorBeforeRequesting(t *testing.T) {
	s := virtual.NewSlave(0, 0x200)
	s.Registers[0x0130] = byte(ethercat.AlStateSafeOp) | 0x10
	s.Registers[0x0130+4] = 0x1B

	resets := 0
	s.OnWrite = func(offset uint16, data []byte) {
		if offset != 0x0120 {
			return
		}
		if data[0]&0x10 != 0 {
			resets++
			s.Registers[0x0130] = byte(ethercat.AlStateSafeOp) &^ 0x10
			return
		}
		s.Registers[0x0130] = data[0] &^ 0x10
	}
	ss, sock := newRing(s)

	transfer := task.NewAlStateTransfer(ethercat.Single(ethercat.ByPosition(0)), ethercat.AlStatePreOp)
	err := task.Block(ss, sock, fixedClock(0), transfer, 1000)
	assert.NoError(t, err)
	assert.Equal(t, 1, resets)
}
