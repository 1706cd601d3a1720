package vault

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	SaberStrategyAccountSize = (8 + // discriminator
		1 + // bump
		8 + // flag
		2 + // version
		32 + // base_lp
		33) // farm_lp

	OrcaStrategyAccountSize = (8 + // discriminator
		1 + // bump
		8 + // flag
		2 + // version
		32 + // swap_program
		32 + // farm_program
		32 + // token_a
		32 + // token_b
		32 + // base_lp
		32 + // farm_lp
		33) // double_dip_lp
)

var (
	SaberStrategyAccountDiscriminator = []byte{0xe2, 0x88, 0x63, 0xa1, 0xa9, 0xb8, 0xfd, 0xf6}
	OrcaStrategyAccountDiscriminator  = []byte{0x9a, 0x18, 0xbb, 0x08, 0x69, 0x1c, 0x1e, 0x50}
)

type SaberStrategyAccount struct {
	Bump    uint8
	Flag    StrategyFlag
	Version StrategyVersion
	BaseLp  ed25519.PublicKey
	FarmLp  ed25519.PublicKey
}

func (obj *SaberStrategyAccount) Marshal() []byte {
	data := make([]byte, SaberStrategyAccountSize)

	var offset int

	putDiscriminator(data, SaberStrategyAccountDiscriminator, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, uint64(obj.Flag), &offset)
	putUint16(data, uint16(obj.Version), &offset)
	putKey(data, obj.BaseLp, &offset)
	putOptionalKey(data, obj.FarmLp, &offset)

	return data
}

func (obj *SaberStrategyAccount) Unmarshal(data []byte) error {
	if len(data) < SaberStrategyAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, SaberStrategyAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var flag uint64
	var version uint16
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &flag, &offset)
	getUint16(data, &version, &offset)
	getKey(data, &obj.BaseLp, &offset)
	getOptionalKey(data, &obj.FarmLp, &offset)

	obj.Flag = StrategyFlag(flag)
	obj.Version = StrategyVersion(version)

	return nil
}

func (obj *SaberStrategyAccount) String() string {
	return fmt.Sprintf(
		"SaberStrategy{bump=%d,flag=%s,version=%d,base_lp=%s,farm_lp=%s}",
		obj.Bump,
		obj.Flag.String(),
		obj.Version,
		base58.Encode(obj.BaseLp),
		optionalKeyString(obj.FarmLp),
	)
}

type OrcaStrategyAccount struct {
	Bump        uint8
	Flag        StrategyFlag
	Version     StrategyVersion
	SwapProgram ed25519.PublicKey
	FarmProgram ed25519.PublicKey
	TokenA      ed25519.PublicKey
	TokenB      ed25519.PublicKey
	BaseLp      ed25519.PublicKey
	FarmLp      ed25519.PublicKey
	DoubleDipLp ed25519.PublicKey
}

func (obj *OrcaStrategyAccount) Marshal() []byte {
	data := make([]byte, OrcaStrategyAccountSize)

	var offset int

	putDiscriminator(data, OrcaStrategyAccountDiscriminator, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, uint64(obj.Flag), &offset)
	putUint16(data, uint16(obj.Version), &offset)
	putKey(data, obj.SwapProgram, &offset)
	putKey(data, obj.FarmProgram, &offset)
	putKey(data, obj.TokenA, &offset)
	putKey(data, obj.TokenB, &offset)
	putKey(data, obj.BaseLp, &offset)
	putKey(data, obj.FarmLp, &offset)
	putOptionalKey(data, obj.DoubleDipLp, &offset)

	return data
}

func (obj *OrcaStrategyAccount) Unmarshal(data []byte) error {
	if len(data) < OrcaStrategyAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, OrcaStrategyAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var flag uint64
	var version uint16
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &flag, &offset)
	getUint16(data, &version, &offset)
	getKey(data, &obj.SwapProgram, &offset)
	getKey(data, &obj.FarmProgram, &offset)
	getKey(data, &obj.TokenA, &offset)
	getKey(data, &obj.TokenB, &offset)
	getKey(data, &obj.BaseLp, &offset)
	getKey(data, &obj.FarmLp, &offset)
	getOptionalKey(data, &obj.DoubleDipLp, &offset)

	obj.Flag = StrategyFlag(flag)
	obj.Version = StrategyVersion(version)

	return nil
}

func (obj *OrcaStrategyAccount) String() string {
	return fmt.Sprintf(
		"OrcaStrategy{bump=%d,flag=%s,version=%d,swap_program=%s,farm_program=%s,token_a=%s,token_b=%s,base_lp=%s,farm_lp=%s,double_dip_lp=%s}",
		obj.Bump,
		obj.Flag.String(),
		obj.Version,
		base58.Encode(obj.SwapProgram),
		base58.Encode(obj.FarmProgram),
		base58.Encode(obj.TokenA),
		base58.Encode(obj.TokenB),
		base58.Encode(obj.BaseLp),
		base58.Encode(obj.FarmLp),
		optionalKeyString(obj.DoubleDipLp),
	)
}

// Strategy is a decoded strategy account of any venue. Exactly one of Saber
// or Orca is set, matching Flag.
type Strategy struct {
	Flag  StrategyFlag
	Saber *SaberStrategyAccount
	Orca  *OrcaStrategyAccount
}

// UnmarshalStrategy decodes a strategy account, selecting the venue by its
// account discriminator.
func UnmarshalStrategy(data []byte) (*Strategy, error) {
	if len(data) < 8 {
		return nil, ErrInvalidAccountData
	}

	switch {
	case bytes.Equal(data[:8], SaberStrategyAccountDiscriminator):
		var saber SaberStrategyAccount
		if err := saber.Unmarshal(data); err != nil {
			return nil, err
		}
		if saber.Flag != StrategyFlagSaber {
			return nil, ErrInvalidStrategyFlag
		}
		return &Strategy{Flag: StrategyFlagSaber, Saber: &saber}, nil
	case bytes.Equal(data[:8], OrcaStrategyAccountDiscriminator):
		var orca OrcaStrategyAccount
		if err := orca.Unmarshal(data); err != nil {
			return nil, err
		}
		if orca.Flag != StrategyFlagOrca {
			return nil, ErrInvalidStrategyFlag
		}
		return &Strategy{Flag: StrategyFlagOrca, Orca: &orca}, nil
	}

	return nil, ErrInvalidAccountData
}

func (obj *Strategy) Marshal() []byte {
	switch obj.Flag {
	case StrategyFlagSaber:
		return obj.Saber.Marshal()
	case StrategyFlagOrca:
		return obj.Orca.Marshal()
	}
	return nil
}

func (obj *Strategy) String() string {
	switch obj.Flag {
	case StrategyFlagSaber:
		return obj.Saber.String()
	case StrategyFlagOrca:
		return obj.Orca.String()
	}
	return "Strategy{unknown}"
}
