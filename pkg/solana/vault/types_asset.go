package vault

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	MaxAssetSize = (32 + // mint
		32 + // lp
		9 + // asset_cap
		9 + // user_cap
		8 + // deposits
		8 + // deposited
		8 + // invested
		8 + // excess
		8 + // received
		8 + // total_invested
		8 + // rollover_deposited
		1 + // claims_processed
		9) // claims_idx
)

// Asset is the per-tranche state embedded in a vault.
type Asset struct {
	Mint              ed25519.PublicKey
	Lp                ed25519.PublicKey
	AssetCap          *uint64
	UserCap           *uint64
	Deposits          uint64
	Deposited         uint64
	Invested          uint64
	Excess            uint64
	Received          uint64
	TotalInvested     uint64
	RolloverDeposited uint64
	ClaimsProcessed   bool
	ClaimsIdx         *uint64
}

func (obj *Asset) Clone() *Asset {
	cloned := *obj
	cloned.Mint = append(ed25519.PublicKey(nil), obj.Mint...)
	cloned.Lp = append(ed25519.PublicKey(nil), obj.Lp...)
	cloned.AssetCap = cloneOptionalUint64(obj.AssetCap)
	cloned.UserCap = cloneOptionalUint64(obj.UserCap)
	cloned.ClaimsIdx = cloneOptionalUint64(obj.ClaimsIdx)
	return &cloned
}

func putAsset(dst []byte, v *Asset, offset *int) {
	putKey(dst, v.Mint, offset)
	putKey(dst, v.Lp, offset)
	putOptionalUint64(dst, v.AssetCap, offset)
	putOptionalUint64(dst, v.UserCap, offset)
	putUint64(dst, v.Deposits, offset)
	putUint64(dst, v.Deposited, offset)
	putUint64(dst, v.Invested, offset)
	putUint64(dst, v.Excess, offset)
	putUint64(dst, v.Received, offset)
	putUint64(dst, v.TotalInvested, offset)
	putUint64(dst, v.RolloverDeposited, offset)
	putBool(dst, v.ClaimsProcessed, offset)
	putOptionalUint64(dst, v.ClaimsIdx, offset)
}

func getAsset(src []byte, dst *Asset, offset *int) {
	getKey(src, &dst.Mint, offset)
	getKey(src, &dst.Lp, offset)
	getOptionalUint64(src, &dst.AssetCap, offset)
	getOptionalUint64(src, &dst.UserCap, offset)
	getUint64(src, &dst.Deposits, offset)
	getUint64(src, &dst.Deposited, offset)
	getUint64(src, &dst.Invested, offset)
	getUint64(src, &dst.Excess, offset)
	getUint64(src, &dst.Received, offset)
	getUint64(src, &dst.TotalInvested, offset)
	getUint64(src, &dst.RolloverDeposited, offset)
	getBool(src, &dst.ClaimsProcessed, offset)
	getOptionalUint64(src, &dst.ClaimsIdx, offset)
}

func (obj *Asset) String() string {
	return fmt.Sprintf(
		"Asset{mint=%s,lp=%s,asset_cap=%s,user_cap=%s,deposits=%d,deposited=%d,invested=%d,excess=%d,received=%d,total_invested=%d,rollover_deposited=%d,claims_processed=%v,claims_idx=%s}",
		base58.Encode(obj.Mint),
		base58.Encode(obj.Lp),
		optionalUint64String(obj.AssetCap),
		optionalUint64String(obj.UserCap),
		obj.Deposits,
		obj.Deposited,
		obj.Invested,
		obj.Excess,
		obj.Received,
		obj.TotalInvested,
		obj.RolloverDeposited,
		obj.ClaimsProcessed,
		optionalUint64String(obj.ClaimsIdx),
	)
}

func cloneOptionalUint64(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	cloned := *v
	return &cloned
}
