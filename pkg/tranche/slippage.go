package tranche

import "github.com/code-payments/tranche-vault/pkg/solana/vault"

// GetMinAmountWithSlippage returns the least output acceptable for an
// expected amount at the given slippage tolerance, rounded down.
func GetMinAmountWithSlippage(amount uint64, slippageBps uint16) (uint64, error) {
	if slippageBps > vault.MaxBps {
		return 0, ErrInvalidBps
	}
	return MulDiv(amount, vault.MaxBps-uint64(slippageBps), vault.MaxBps, RoundingDown)
}
