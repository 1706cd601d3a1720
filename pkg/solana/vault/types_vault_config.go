package vault

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	MaxAssetConfigSize = (9 + // user_cap
		9) // asset_cap

	MaxVaultConfigSize = (32 + // strategy
		32 + // authority
		32 + // strategist
		MaxAssetConfigSize + // alpha
		MaxAssetConfigSize + // beta
		2 + // fixed_rate
		8 + // start_at
		8 + // invest_at
		8) // redeem_at
)

type AssetConfig struct {
	UserCap  *uint64
	AssetCap *uint64
}

// VaultConfig is supplied when a vault is created. Timestamps are unix
// seconds and fixed rate is in basis points.
type VaultConfig struct {
	Strategy   ed25519.PublicKey
	Authority  ed25519.PublicKey
	Strategist ed25519.PublicKey
	Alpha      AssetConfig
	Beta       AssetConfig
	FixedRate  uint16
	StartAt    uint64
	InvestAt   uint64
	RedeemAt   uint64
}

func putAssetConfig(dst []byte, v *AssetConfig, offset *int) {
	putOptionalUint64(dst, v.UserCap, offset)
	putOptionalUint64(dst, v.AssetCap, offset)
}
func getAssetConfig(src []byte, dst *AssetConfig, offset *int) {
	getOptionalUint64(src, &dst.UserCap, offset)
	getOptionalUint64(src, &dst.AssetCap, offset)
}

func putVaultConfig(dst []byte, v *VaultConfig, offset *int) {
	putKey(dst, v.Strategy, offset)
	putKey(dst, v.Authority, offset)
	putKey(dst, v.Strategist, offset)
	putAssetConfig(dst, &v.Alpha, offset)
	putAssetConfig(dst, &v.Beta, offset)
	putUint16(dst, v.FixedRate, offset)
	putUint64(dst, v.StartAt, offset)
	putUint64(dst, v.InvestAt, offset)
	putUint64(dst, v.RedeemAt, offset)
}
func getVaultConfig(src []byte, dst *VaultConfig, offset *int) {
	getKey(src, &dst.Strategy, offset)
	getKey(src, &dst.Authority, offset)
	getKey(src, &dst.Strategist, offset)
	getAssetConfig(src, &dst.Alpha, offset)
	getAssetConfig(src, &dst.Beta, offset)
	getUint16(src, &dst.FixedRate, offset)
	getUint64(src, &dst.StartAt, offset)
	getUint64(src, &dst.InvestAt, offset)
	getUint64(src, &dst.RedeemAt, offset)
}

func (obj *VaultConfig) String() string {
	return fmt.Sprintf(
		"VaultConfig{strategy=%s,authority=%s,strategist=%s,alpha_user_cap=%s,alpha_asset_cap=%s,beta_user_cap=%s,beta_asset_cap=%s,fixed_rate=%d,start_at=%d,invest_at=%d,redeem_at=%d}",
		base58.Encode(obj.Strategy),
		base58.Encode(obj.Authority),
		base58.Encode(obj.Strategist),
		optionalUint64String(obj.Alpha.UserCap),
		optionalUint64String(obj.Alpha.AssetCap),
		optionalUint64String(obj.Beta.UserCap),
		optionalUint64String(obj.Beta.AssetCap),
		obj.FixedRate,
		obj.StartAt,
		obj.InvestAt,
		obj.RedeemAt,
	)
}
