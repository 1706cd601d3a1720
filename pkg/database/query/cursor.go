package query

import (
	"encoding/binary"
)

// Cursor is an opaque position in a paged result, encoding the last seen
// record id.
type Cursor []byte

var EmptyCursor = Cursor{}

func ToCursor(id uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}
