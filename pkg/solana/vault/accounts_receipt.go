package vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	ReceiptAccountSize = (8 + // discriminator
		1 + // bump
		8 + // amount
		8 + // cumulative
		32) // depositor
)

var ReceiptAccountDiscriminator = []byte{0x27, 0x9a, 0x49, 0x6a, 0x50, 0x66, 0x91, 0x99}

// ReceiptAccount records a single deposit. Cumulative is the tranche's
// deposited total immediately before the deposit.
type ReceiptAccount struct {
	Bump       uint8
	Amount     uint64
	Cumulative uint64
	Depositor  ed25519.PublicKey
}

func (obj *ReceiptAccount) Marshal() []byte {
	data := make([]byte, ReceiptAccountSize)

	var offset int

	putDiscriminator(data, ReceiptAccountDiscriminator, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, obj.Amount, &offset)
	putUint64(data, obj.Cumulative, &offset)
	putKey(data, obj.Depositor, &offset)

	return data
}

func (obj *ReceiptAccount) Unmarshal(data []byte) error {
	if len(data) < ReceiptAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, ReceiptAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &obj.Amount, &offset)
	getUint64(data, &obj.Cumulative, &offset)
	getKey(data, &obj.Depositor, &offset)

	return nil
}

func (obj *ReceiptAccount) String() string {
	return fmt.Sprintf(
		"Receipt{bump=%d,amount=%d,cumulative=%d,depositor=%s}",
		obj.Bump,
		obj.Amount,
		obj.Cumulative,
		base58.Encode(obj.Depositor),
	)
}
