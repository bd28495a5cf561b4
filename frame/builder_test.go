package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ethercat "github.com/samsamfire/goethercat"
)

var testMAC = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

func TestFrameBuildRoundTrip(t *testing.T) {
	buf := make([]byte, MTU)
	b := NewBuilder(buf, testMAC, 0)

	cmd := ethercat.NewReadCommand(ethercat.Single(ethercat.ByPosition(0)), 0x0000, 0x0130)
	ok := b.AddPDU(7, cmd, 6, func(payload []byte) {
		copy(payload, []byte{1, 2, 3, 4, 5, 6})
	})
	assert.True(t, ok)

	out := b.Finish()
	assert.Equal(t, 14+2+10+6+2, len(out))

	it, ok := NewIterator(out)
	assert.True(t, ok)
	assert.Equal(t, uint16(18), EcHeader(out[14:16]).Length())

	dg, ok := it.Next()
	assert.True(t, ok)
	assert.Equal(t, uint16(6), dg.Header.Length())
	assert.Equal(t, ethercat.CmdAPRD, dg.Header.Command())
	assert.Equal(t, uint8(7), dg.Header.Index())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, dg.Payload)
	assert.False(t, dg.Header.More())

	_, ok = it.Next()
	assert.False(t, ok)
}

func TestFrameMultipleDatagramsSetsMoreFollows(t *testing.T) {
	buf := make([]byte, MTU)
	b := NewBuilder(buf, testMAC, 0)

	cmd := ethercat.NewLogicalCommand(0x1000)
	assert.True(t, b.AddPDU(0, cmd, 2, nil))
	assert.True(t, b.AddPDU(1, cmd, 2, nil))

	out := b.Finish()
	it, ok := NewIterator(out)
	assert.True(t, ok)

	first, ok := it.Next()
	assert.True(t, ok)
	assert.True(t, first.Header.More())

	second, ok := it.Next()
	assert.True(t, ok)
	assert.False(t, second.Header.More())
}

func TestFrameCapacityRefusal(t *testing.T) {
	buf := make([]byte, DatagramsOffset+DatagramHeaderSize+4+WkcSize)
	b := NewBuilder(buf, testMAC, 0)
	cmd := ethercat.NewReadCommand(ethercat.All(1), 0, 0)

	assert.True(t, b.AddPDU(0, cmd, 4, nil))
	assert.False(t, b.AddPDU(1, cmd, 4, nil))
}

func TestDatagramWkcRoundTrip(t *testing.T) {
	buf := make([]byte, MTU)
	b := NewBuilder(buf, testMAC, 0)
	cmd := ethercat.NewReadCommand(ethercat.All(3), 0x0130, 0)
	assert.True(t, b.AddPDU(0, cmd, 1, nil))
	out := b.Finish()

	it, _ := NewIterator(out)
	dg, _ := it.Next()
	dg.Wkc.SetValue(3)
	assert.Equal(t, uint16(3), dg.Wkc.Value())
}
