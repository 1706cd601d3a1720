package lifecycle

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/code-payments/tranche-vault/pkg/solana"
)

// ErrAccountNotFound is returned by an AccountReader for an address with no
// account.
var ErrAccountNotFound = solana.ErrNoAccountInfo

// AccountReader reads on-chain account state.
type AccountReader interface {
	GetAccountData(ctx context.Context, address ed25519.PublicKey) ([]byte, error)
	GetTokenBalance(ctx context.Context, address ed25519.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
}

// Submitter signs and submits a transaction, returning once it has reached
// the submitter's commitment level. The first signer pays the fees.
type Submitter interface {
	Submit(ctx context.Context, signers []ed25519.PrivateKey, ixns ...solana.Instruction) (solana.Signature, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time {
	return time.Now()
}
