package tranche

import "github.com/pkg/errors"

var (
	ErrNonexistentAsset      = errors.New("mint is not an asset of the vault")
	ErrDepositExceedsUserCap = errors.New("deposit exceeds user cap")
	ErrAssetCapExceeded      = errors.New("deposit exceeds asset cap")
	ErrNothingToRebalance    = errors.New("nothing to rebalance")
	ErrMathOverflow          = errors.New("math overflow")
	ErrDivideByZero          = errors.New("divide by zero")
	ErrInvalidBps            = errors.New("basis points exceed 10000")
	ErrZeroQuote             = errors.New("quote returned zero amount")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
)
