package slave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samsamfire/goethercat/slave"
)

func TestFmmuReadToBufferByteAligned(t *testing.T) {
	registers := []byte{0x12, 0x34}
	image := make([]byte, 4)

	f := slave.FmmuConfig{BitLength: 16, PhysicalStartBit: 0, LogicalStartBit: 0}
	f.ReadToBuffer(image, 1, registers)

	assert.Equal(t, []byte{0x00, 0x12, 0x34, 0x00}, image)
}

func TestFmmuWriteFromBufferLeavesNeighboringBitsUntouched(t *testing.T) {
	registers := []byte{0x0f, 0xaa}
	image := []byte{0x0f}

	f := slave.FmmuConfig{BitLength: 4, PhysicalStartBit: 4, LogicalStartBit: 0, Write: true}
	f.WriteFromBuffer(registers, image, 0)

	assert.Equal(t, byte(0xff), registers[0])
	assert.Equal(t, byte(0xaa), registers[1])
}

func TestFmmuByteLength(t *testing.T) {
	f := slave.FmmuConfig{BitLength: 16, PhysicalStartBit: 0}
	assert.Equal(t, 2, f.ByteLength())

	f2 := slave.FmmuConfig{BitLength: 9, PhysicalStartBit: 7}
	assert.Equal(t, 2, f2.ByteLength())
}

func TestPdoMappingBitLength(t *testing.T) {
	m := slave.PdoMapping{
		Entries: []slave.PdoEntry{
			{Index: 0x7000, SubIndex: 1, BitLength: 16},
			{Index: 0x7000, SubIndex: 2, BitLength: 32},
			{Index: 0x7000, SubIndex: 3, BitLength: 16},
		},
	}
	assert.Equal(t, 64, m.BitLength())
}

func TestSlaveMbCountWraps(t *testing.T) {
	s := &slave.Slave{}
	var got []uint8
	for i := 0; i < 9; i++ {
		got = append(got, s.NextMbCount())
	}
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 1, 2}, got)
}
