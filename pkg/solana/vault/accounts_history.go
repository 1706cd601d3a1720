package vault

import (
	"bytes"
	"fmt"
)

const (
	HistoryAccountSize = (8 + // discriminator
		1 + // bump
		1 + // initialized
		8 + // deposits
		8 + // cumulative
		8 + // claim
		1) // can_claim_tranche_lp
)

var HistoryAccountDiscriminator = []byte{0x1f, 0xd8, 0x3c, 0x21, 0xd5, 0xd1, 0x46, 0x65}

// HistoryAccount is a depositor's running position in one tranche of a
// vault.
type HistoryAccount struct {
	Bump              uint8
	Initialized       bool
	Deposits          uint64
	Cumulative        uint64
	Claim             uint64
	CanClaimTrancheLp bool
}

func (obj *HistoryAccount) Marshal() []byte {
	data := make([]byte, HistoryAccountSize)

	var offset int

	putDiscriminator(data, HistoryAccountDiscriminator, &offset)
	putUint8(data, obj.Bump, &offset)
	putBool(data, obj.Initialized, &offset)
	putUint64(data, obj.Deposits, &offset)
	putUint64(data, obj.Cumulative, &offset)
	putUint64(data, obj.Claim, &offset)
	putBool(data, obj.CanClaimTrancheLp, &offset)

	return data
}

func (obj *HistoryAccount) Unmarshal(data []byte) error {
	if len(data) < HistoryAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, HistoryAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint8(data, &obj.Bump, &offset)
	getBool(data, &obj.Initialized, &offset)
	getUint64(data, &obj.Deposits, &offset)
	getUint64(data, &obj.Cumulative, &offset)
	getUint64(data, &obj.Claim, &offset)
	getBool(data, &obj.CanClaimTrancheLp, &offset)

	return nil
}

func (obj *HistoryAccount) String() string {
	return fmt.Sprintf(
		"History{bump=%d,initialized=%v,deposits=%d,cumulative=%d,claim=%d,can_claim_tranche_lp=%v}",
		obj.Bump,
		obj.Initialized,
		obj.Deposits,
		obj.Cumulative,
		obj.Claim,
		obj.CanClaimTrancheLp,
	)
}
