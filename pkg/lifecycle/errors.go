package lifecycle

import (
	"github.com/pkg/errors"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

var (
	ErrInvalidTimestampOrdering = errors.New("timestamps must satisfy start < invest < redeem")
	ErrInvalidFixedRate         = errors.New("fixed rate exceeds 10000 bps")
	ErrDuplicateMint            = errors.New("alpha and beta mints must be distinct")
	ErrInvalidStateForAction    = errors.New("vault is not in a valid state for the action")
	ErrZeroAmount               = errors.New("amount must be positive")
	ErrClaimsNotProcessed       = errors.New("claims have not been processed")
	ErrNothingToClaim           = errors.New("nothing to claim")
	ErrNoDeposits               = errors.New("both tranches need deposits")
	ErrNoFarmVault              = errors.New("vault has no farm vault")
	ErrVenueNotFound            = errors.New("venue accounts not found for strategy")
	ErrRetryable                = errors.New("retryable submission failure")
	ErrWaitTimeout              = errors.New("timed out waiting")
)

// accountInUseErrorCode is the system program's custom error for creating
// an account that already exists.
const accountInUseErrorCode solana.CustomError = 0

type retryableError struct {
	cause error
}

func (e *retryableError) Error() string {
	return ErrRetryable.Error() + ": " + e.cause.Error()
}

func (e *retryableError) Unwrap() error {
	return e.cause
}

func (e *retryableError) Is(target error) bool {
	return target == ErrRetryable
}

// classifySubmitError marks failures that succeed when the operation is
// rebuilt from fresh state. Everything else is returned unchanged.
func classifySubmitError(err error) error {
	if err == nil {
		return nil
	}

	if custom, ok := solana.GetCustomError(err); ok && custom == accountInUseErrorCode {
		return &retryableError{cause: err}
	}
	return err
}
