package tranche

import "math/big"

// ComputeClaimAmount returns how much of a deposit was not invested and is
// returned to the depositor. Receipts are walked newest first, so once a
// receipt reaches below the invested total the walk is complete.
//
// invested is the tranche's invested total, cumulative the tranche's
// deposited total before the receipt's deposit and deposited the receipt
// amount.
func ComputeClaimAmount(invested, cumulative, deposited uint64) (amount uint64, complete bool) {
	switch {
	case cumulative == invested:
		return deposited, true
	case cumulative > invested:
		return deposited, false
	case cumulative+deposited > invested:
		return cumulative + deposited - invested, true
	default:
		return 0, true
	}
}

// ComputeLpAmount is the tranche LP a depositor is minted on claim: every
// deposited token that was invested.
func ComputeLpAmount(cumulative, claim uint64) uint64 {
	if claim >= cumulative {
		return 0
	}
	return cumulative - claim
}

// ComputeWithdrawAmount converts tranche LP into the tranche asset at the
// redemption rate received/invested, scaled by the asset's decimals.
func ComputeWithdrawAmount(received, invested, lpAmount uint64, decimals uint8) (uint64, error) {
	if invested == 0 {
		return 0, nil
	}

	scale, err := Pow10(decimals)
	if err != nil {
		return 0, err
	}
	bigScale := new(big.Int).SetUint64(scale)

	rate := new(big.Int).Mul(new(big.Int).SetUint64(received), bigScale)
	rate.Quo(rate, new(big.Int).SetUint64(invested))

	amount := rate.Mul(rate, new(big.Int).SetUint64(lpAmount))
	amount.Quo(amount, bigScale)

	return toUint64(amount)
}
