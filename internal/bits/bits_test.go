package bits_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samsamfire/goethercat/internal/bits"
)

func TestCopyLeavesNeighboringBitsUntouched(t *testing.T) {
	dst := []byte{0xff, 0xff}
	src := []byte{0x00, 0x00}

	bits.Copy(dst, 3, src, 0, 4)

	assert.Equal(t, byte(0b1000_0111), dst[0])
	assert.Equal(t, byte(0xff), dst[1])
}

func TestCopySpansByteBoundary(t *testing.T) {
	dst := make([]byte, 2)
	src := []byte{0b1010_1010, 0b0000_0001}

	bits.Copy(dst, 4, src, 0, 9)

	assert.Equal(t, byte(0b1010_0000), dst[0])
	assert.Equal(t, byte(0b0001_1010), dst[1])
}

func TestByteLength(t *testing.T) {
	assert.Equal(t, 8, bits.ByteLength(0, 64))
	assert.Equal(t, 8, bits.ByteLength(7, 57))
	assert.Equal(t, 9, bits.ByteLength(7, 58))
}
