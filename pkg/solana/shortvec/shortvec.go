// Package shortvec implements the compact-u16 length prefix used throughout
// Solana's wire format: seven bits per byte, low bits first, with the high
// bit set on every byte but the last.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// maxEncodedLen is the number of bytes needed for math.MaxUint16
const maxEncodedLen = 3

var ErrInvalidLen = errors.New("shortvec: invalid length encoding")

// EncodeLen writes length to w. Lengths above math.MaxUint16 are rejected.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("shortvec: length %d out of range", length)
	}

	var encoded [maxEncodedLen]byte
	n := 0
	for {
		encoded[n] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			n++
			break
		}
		encoded[n] |= 0x80
		n++
	}
	return w.Write(encoded[:n])
}

// DecodeLen reads a length written by EncodeLen.
func DecodeLen(r io.Reader) (int, error) {
	var length int
	var b [1]byte
	for i := 0; i < maxEncodedLen; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		length |= int(b[0]&0x7f) << (7 * i)
		if b[0]&0x80 == 0 {
			if length > math.MaxUint16 {
				return 0, ErrInvalidLen
			}
			return length, nil
		}
	}
	return 0, ErrInvalidLen
}
