package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIteratorRejectsAlienEtherType(t *testing.T) {
	buf := make([]byte, DatagramsOffset)
	eth := EthernetHeader(buf[:EthernetHeaderSize])
	eth.SetEtherType(0x0800)
	_, ok := NewIterator(buf)
	assert.False(t, ok)
}

func TestMailboxHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, MailboxHeaderSize)
	h := MailboxHeader(buf)
	h.Init(12, 0x1001, 1, 2, MailboxTypeCoE, 5)

	assert.Equal(t, uint16(12), h.Length())
	assert.Equal(t, uint16(0x1001), h.StationAddress())
	assert.Equal(t, uint8(1), h.Channel())
	assert.Equal(t, uint8(2), h.Priority())
	assert.Equal(t, MailboxTypeCoE, h.Type())
	assert.Equal(t, uint8(5), h.Count())
}

func TestNextMailboxCountWraps(t *testing.T) {
	seq := []uint8{}
	c := uint8(0)
	for i := 0; i < 9; i++ {
		c = NextMailboxCount(c)
		seq = append(seq, c)
	}
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 6, 7, 1, 2}, seq)
}

func TestCoeHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, 2)
	h := CoeHeader(buf)
	h.Init(5, CoeServiceSdoRequest)
	assert.Equal(t, uint16(5), h.Number())
	assert.Equal(t, CoeServiceSdoRequest, h.Service())
}

func TestServiceHeaderExpeditedDownload(t *testing.T) {
	buf := make([]byte, ServiceHeaderSize)
	h := ServiceHeader(buf)
	h.InitExpeditedDownload(0x6040, 0x00, 2, false)

	assert.True(t, h.SizeIndicator())
	assert.True(t, h.Expedited())
	assert.Equal(t, 2, h.ExpeditedSize())
	assert.Equal(t, uint16(0x6040), h.Index())
	assert.Equal(t, uint8(0x00), h.SubIndex())
	assert.Equal(t, SpecDownloadRequest, h.CommandSpecifier())
}

func TestServiceHeaderNormalUploadRequest(t *testing.T) {
	buf := make([]byte, ServiceHeaderSize)
	h := ServiceHeader(buf)
	h.InitUploadRequest(0x1018, 0x01, true)

	assert.False(t, h.Expedited())
	assert.True(t, h.CompleteAccess())
	assert.Equal(t, SpecUploadRequest, h.CommandSpecifier())
}
