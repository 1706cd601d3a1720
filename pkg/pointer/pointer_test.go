package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint64(t *testing.T) {
	p := Uint64(42)
	assert.EqualValues(t, 42, *p)
	assert.NotSame(t, p, Uint64(42))

	assert.EqualValues(t, 42, Uint64OrDefault(p, 7))
	assert.EqualValues(t, 7, Uint64OrDefault(nil, 7))
}
