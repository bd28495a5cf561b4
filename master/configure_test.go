package master_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samsamfire/goethercat/master"
	"github.com/samsamfire/goethercat/slave"
)

func TestAssignPdoAddressesPacksSequentially(t *testing.T) {
	mapping := &slave.PdoMapping{
		Entries: []slave.PdoEntry{
			{Index: 0x7000, SubIndex: 1, BitLength: 16},
			{Index: 0x7000, SubIndex: 2, BitLength: 32},
			{Index: 0x7000, SubIndex: 3, BitLength: 16},
		},
	}

	fmmuByteLength, endBit := master.AssignPdoAddresses(mapping, 0x1000)

	assert.Equal(t, 8, fmmuByteLength)
	assert.Equal(t, uint8(7), endBit)

	assert.Equal(t, uint32(0x1000), mapping.Entries[0].LogicalAddress)
	assert.Equal(t, uint8(0), mapping.Entries[0].LogicalBit)
	assert.Equal(t, uint32(0x1002), mapping.Entries[1].LogicalAddress)
	assert.Equal(t, uint8(0), mapping.Entries[1].LogicalBit)
	assert.Equal(t, uint32(0x1006), mapping.Entries[2].LogicalAddress)
	assert.Equal(t, uint8(0), mapping.Entries[2].LogicalBit)
}
