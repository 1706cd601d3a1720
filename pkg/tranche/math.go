package tranche

import (
	"math/big"

	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

type Rounding uint8

const (
	RoundingDown Rounding = iota
	RoundingUp
)

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// MulDiv computes x*y/denominator with a 128-bit intermediate product.
func MulDiv(x, y, denominator uint64, rounding Rounding) (uint64, error) {
	if denominator == 0 {
		return 0, ErrDivideByZero
	}

	div, mod := new(big.Int).QuoRem(
		new(big.Int).Mul(new(big.Int).SetUint64(x), new(big.Int).SetUint64(y)),
		new(big.Int).SetUint64(denominator),
		new(big.Int))

	if rounding == RoundingUp && mod.Sign() != 0 {
		div.Add(div, big.NewInt(1))
	}

	return toUint64(div)
}

// RequiredAlpha is the amount alpha must receive at redemption to honour the
// fixed rate on what it invested.
func RequiredAlpha(invested uint64, fixedRate uint16) (uint64, error) {
	if fixedRate > vault.MaxBps {
		return 0, ErrInvalidBps
	}
	return MulDiv(invested, vault.MaxBps+uint64(fixedRate), vault.MaxBps, RoundingDown)
}

// Pow10 returns 10^decimals. Token decimals above 19 do not fit in a uint64.
func Pow10(decimals uint8) (uint64, error) {
	if decimals > 19 {
		return 0, ErrMathOverflow
	}

	res := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		res *= 10
	}
	return res, nil
}

func toUint64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(maxUint64) > 0 {
		return 0, ErrMathOverflow
	}
	return v.Uint64(), nil
}
