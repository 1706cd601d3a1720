package vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	GlobalProtocolStateAccountSize = (8 + // discriminator
		1 + // bump
		32 + // authority
		1 + // active
		32) // treasury
)

var GlobalProtocolStateAccountDiscriminator = []byte{0x9c, 0xeb, 0xaa, 0xfe, 0xb5, 0x38, 0x78, 0xc8}

type GlobalProtocolStateAccount struct {
	Bump      uint8
	Authority ed25519.PublicKey
	Active    bool
	Treasury  ed25519.PublicKey
}

func (obj *GlobalProtocolStateAccount) Marshal() []byte {
	data := make([]byte, GlobalProtocolStateAccountSize)

	var offset int

	putDiscriminator(data, GlobalProtocolStateAccountDiscriminator, &offset)
	putUint8(data, obj.Bump, &offset)
	putKey(data, obj.Authority, &offset)
	putBool(data, obj.Active, &offset)
	putKey(data, obj.Treasury, &offset)

	return data
}

func (obj *GlobalProtocolStateAccount) Unmarshal(data []byte) error {
	if len(data) < GlobalProtocolStateAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, GlobalProtocolStateAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint8(data, &obj.Bump, &offset)
	getKey(data, &obj.Authority, &offset)
	getBool(data, &obj.Active, &offset)
	getKey(data, &obj.Treasury, &offset)

	return nil
}

func (obj *GlobalProtocolStateAccount) String() string {
	return fmt.Sprintf(
		"GlobalProtocolState{bump=%d,authority=%s,active=%v,treasury=%s}",
		obj.Bump,
		base58.Encode(obj.Authority),
		obj.Active,
		base58.Encode(obj.Treasury),
	)
}
