package vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

const (
	VaultAccountSize = (8 + // discriminator
		1 + // bump
		32 + // authority
		MaxAssetSize + // alpha
		MaxAssetSize + // beta
		32 + // strategy
		32 + // strategist
		2 + // fixed_rate
		StateSize + // state
		8 + // start_at
		8 + // invest_at
		8 + // redeem_at
		33) // farm_vault
)

var VaultAccountDiscriminator = []byte{0xd3, 0x08, 0xe8, 0x2b, 0x02, 0x98, 0x75, 0x77}

type VaultAccount struct {
	Bump       uint8
	Authority  ed25519.PublicKey
	Alpha      Asset
	Beta       Asset
	Strategy   ed25519.PublicKey
	Strategist ed25519.PublicKey
	FixedRate  uint16
	State      State
	StartAt    uint64
	InvestAt   uint64
	RedeemAt   uint64
	FarmVault  ed25519.PublicKey
}

func (obj *VaultAccount) Marshal() []byte {
	data := make([]byte, VaultAccountSize)

	var offset int

	putDiscriminator(data, VaultAccountDiscriminator, &offset)
	putUint8(data, obj.Bump, &offset)
	putKey(data, obj.Authority, &offset)
	putAsset(data, &obj.Alpha, &offset)
	putAsset(data, &obj.Beta, &offset)
	putKey(data, obj.Strategy, &offset)
	putKey(data, obj.Strategist, &offset)
	putUint16(data, obj.FixedRate, &offset)
	putState(data, obj.State, &offset)
	putUint64(data, obj.StartAt, &offset)
	putUint64(data, obj.InvestAt, &offset)
	putUint64(data, obj.RedeemAt, &offset)
	putOptionalKey(data, obj.FarmVault, &offset)

	return data
}

func (obj *VaultAccount) Unmarshal(data []byte) error {
	if len(data) < VaultAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, VaultAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint8(data, &obj.Bump, &offset)
	getKey(data, &obj.Authority, &offset)
	getAsset(data, &obj.Alpha, &offset)
	getAsset(data, &obj.Beta, &offset)
	getKey(data, &obj.Strategy, &offset)
	getKey(data, &obj.Strategist, &offset)
	getUint16(data, &obj.FixedRate, &offset)
	if err := getState(data, &obj.State, &offset); err != nil {
		return err
	}
	getUint64(data, &obj.StartAt, &offset)
	getUint64(data, &obj.InvestAt, &offset)
	getUint64(data, &obj.RedeemAt, &offset)
	getOptionalKey(data, &obj.FarmVault, &offset)

	return nil
}

func (obj *VaultAccount) Clone() *VaultAccount {
	cloned := *obj
	cloned.Authority = append(ed25519.PublicKey(nil), obj.Authority...)
	cloned.Alpha = *obj.Alpha.Clone()
	cloned.Beta = *obj.Beta.Clone()
	cloned.Strategy = append(ed25519.PublicKey(nil), obj.Strategy...)
	cloned.Strategist = append(ed25519.PublicKey(nil), obj.Strategist...)
	if obj.FarmVault != nil {
		cloned.FarmVault = append(ed25519.PublicKey(nil), obj.FarmVault...)
	}
	return &cloned
}

func (obj *VaultAccount) String() string {
	return fmt.Sprintf(
		"Vault{bump=%d,authority=%s,alpha=%s,beta=%s,strategy=%s,strategist=%s,fixed_rate=%d,state=%s,start_at=%s,invest_at=%s,redeem_at=%s,farm_vault=%s}",
		obj.Bump,
		base58.Encode(obj.Authority),
		obj.Alpha.String(),
		obj.Beta.String(),
		base58.Encode(obj.Strategy),
		base58.Encode(obj.Strategist),
		obj.FixedRate,
		obj.State.String(),
		time.Unix(int64(obj.StartAt), 0).UTC().String(),
		time.Unix(int64(obj.InvestAt), 0).UTC().String(),
		time.Unix(int64(obj.RedeemAt), 0).UTC().String(),
		optionalKeyString(obj.FarmVault),
	)
}
