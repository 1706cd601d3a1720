package shortvec

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLen(t *testing.T) {
	for length, expected := range map[int][]byte{
		0:              {0x00},
		0x7f:           {0x7f},
		0x80:           {0x80, 0x01},
		0x3fff:         {0xff, 0x7f},
		0x4000:         {0x80, 0x80, 0x01},
		math.MaxUint16: {0xff, 0xff, 0x03},
	} {
		var buf bytes.Buffer
		n, err := EncodeLen(&buf, length)
		require.NoError(t, err)
		assert.Equal(t, len(expected), n)
		assert.Equal(t, expected, buf.Bytes(), "length %d", length)

		decoded, err := DecodeLen(&buf)
		require.NoError(t, err)
		assert.Equal(t, length, decoded)
	}
}

func TestEncodeLen_OutOfRange(t *testing.T) {
	_, err := EncodeLen(io.Discard, math.MaxUint16+1)
	assert.Error(t, err)
	_, err = EncodeLen(io.Discard, -1)
	assert.Error(t, err)
}

func TestDecodeLen_Invalid(t *testing.T) {
	_, err := DecodeLen(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x01}))
	assert.ErrorIs(t, err, ErrInvalidLen)

	// Three bytes that overflow a u16
	_, err = DecodeLen(bytes.NewReader([]byte{0xff, 0xff, 0x07}))
	assert.ErrorIs(t, err, ErrInvalidLen)

	_, err = DecodeLen(bytes.NewReader([]byte{0x80}))
	assert.Error(t, err)
}
