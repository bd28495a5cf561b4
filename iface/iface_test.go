package iface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ethercat "github.com/samsamfire/goethercat"
	"github.com/samsamfire/goethercat/iface"
	"github.com/samsamfire/goethercat/rawsock/virtual"
)

var masterMAC = [6]byte{0x02, 0, 0, 0, 0, 0x01}

func TestInterfaceTransmitReceiveRoundTrip(t *testing.T) {
	slave := virtual.NewSlave(0, 0x1000)
	copy(slave.Registers[0x0130:], []byte{0xAA, 0xBB})
	seg := virtual.NewSegment(slave)
	dev := seg.NewDevice(1514)

	ifc := iface.New(dev, masterMAC, 1514)
	cmd := ethercat.NewReadCommand(ethercat.Single(ethercat.ByPosition(0)), 0x0000, 0x0130)

	err := ifc.AddPDU(0, cmd, 2, nil)
	assert.NoError(t, err)

	done, err := ifc.TransmitOneFrame()
	assert.NoError(t, err)
	assert.True(t, done)

	done, err = ifc.ReceiveOneFrame()
	assert.NoError(t, err)
	assert.True(t, done)

	it, ok := ifc.ConsumePDUs()
	assert.True(t, ok)
	dg, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, dg.Payload)
	assert.Equal(t, uint16(1), dg.Wkc.Value())
}

func TestInterfaceReportsNothingReceivedWhenIdle(t *testing.T) {
	seg := virtual.NewSegment(virtual.NewSlave(0, 0x100))
	dev := seg.NewDevice(1514)
	ifc := iface.New(dev, masterMAC, 1514)

	_, ok := ifc.ConsumePDUs()
	assert.False(t, ok)
	done, err := ifc.ReceiveOneFrame()
	assert.NoError(t, err)
	assert.True(t, done)
}

func TestInterfaceSurfacesBusyWithoutResettingQueue(t *testing.T) {
	seg := virtual.NewSegment(virtual.NewSlave(0, 0x100))
	dev := seg.NewDevice(1514)
	// Exhaust the device's single in-flight TX slot.
	_, ok := dev.TxBuffer(20)
	assert.True(t, ok)

	ifc := iface.New(dev, masterMAC, 1514)
	cmd := ethercat.NewReadCommand(ethercat.All(1), 0, 0)
	assert.NoError(t, ifc.AddPDU(0, cmd, 2, nil))
	queued := ifc.RemainingPDUDataCapacity()

	_, err := ifc.TransmitOneFrame()
	assert.ErrorIs(t, err, ethercat.ErrBusy)
	assert.Equal(t, queued, ifc.RemainingPDUDataCapacity())
}
