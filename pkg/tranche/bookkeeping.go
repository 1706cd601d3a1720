package tranche

import (
	"bytes"
	"crypto/ed25519"
	"math"
	"math/bits"

	"github.com/code-payments/tranche-vault/pkg/pointer"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

type Tranche uint8

const (
	TrancheAlpha Tranche = iota
	TrancheBeta
)

func (t Tranche) String() string {
	if t == TrancheBeta {
		return "beta"
	}
	return "alpha"
}

// GetAsset resolves the tranche a mint is deposited into.
func GetAsset(v *vault.VaultAccount, mint ed25519.PublicKey) (*vault.Asset, Tranche, error) {
	switch {
	case bytes.Equal(mint, v.Alpha.Mint):
		return &v.Alpha, TrancheAlpha, nil
	case bytes.Equal(mint, v.Beta.Mint):
		return &v.Beta, TrancheBeta, nil
	}
	return nil, 0, ErrNonexistentAsset
}

// Position is a depositor's running totals in one tranche.
type Position struct {
	Cumulative uint64
	Deposits   uint64
	LastClaim  uint64
	CanClaimLp bool
}

// ProjectUserPosition reads a history account. A depositor without history
// has an empty position.
func ProjectUserPosition(history *vault.HistoryAccount) Position {
	if history == nil || !history.Initialized {
		return Position{}
	}
	return Position{
		Cumulative: history.Cumulative,
		Deposits:   history.Deposits,
		LastClaim:  history.Claim,
		CanClaimLp: history.CanClaimTrancheLp,
	}
}

// NextDepositIndex is the receipt index the next deposit into asset is
// recorded under. Indices start at 1.
func NextDepositIndex(asset *vault.Asset) uint64 {
	return asset.Deposits + 1
}

// CheckDepositCaps rejects a deposit that would take the depositor past the
// user cap or the tranche past its asset cap. Absent caps are unlimited.
func CheckDepositCaps(asset *vault.Asset, position Position, amount uint64) error {
	cumulative, carry := bits.Add64(position.Cumulative, amount, 0)
	if carry != 0 {
		return ErrMathOverflow
	}
	if cumulative > pointer.Uint64OrDefault(asset.UserCap, math.MaxUint64) {
		return ErrDepositExceedsUserCap
	}

	deposited, carry := bits.Add64(asset.Deposited, amount, 0)
	if carry != 0 {
		return ErrMathOverflow
	}
	if deposited > pointer.Uint64OrDefault(asset.AssetCap, math.MaxUint64) {
		return ErrAssetCapExceeded
	}

	return nil
}
