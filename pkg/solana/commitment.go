package solana

import (
	"time"

	"github.com/pkg/errors"
)

// A slot is 64 ticks at 160 ticks per second. Status polling runs at twice
// the slot rate.
const PollRate = 64 * time.Second / 160 / 2

const (
	levelProcessed = "processed"
	levelConfirmed = "confirmed"
	levelFinalized = "finalized"
)

// Commitment is the RPC commitment config object.
type Commitment struct {
	Commitment string `json:"commitment"`
}

var (
	CommitmentProcessed = Commitment{Commitment: levelProcessed}
	CommitmentConfirmed = Commitment{Commitment: levelConfirmed}
	CommitmentFinalized = Commitment{Commitment: levelFinalized}
)

// ParseCommitment maps a commitment level name to its Commitment.
func ParseCommitment(level string) (Commitment, error) {
	for _, c := range []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized} {
		if c.Commitment == level {
			return c, nil
		}
	}
	return Commitment{}, errors.Errorf("unknown commitment level %q", level)
}

// SignatureStatus is a node's view of a submitted transaction.
type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Nil once the transaction is rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == levelFinalized
}

func (s SignatureStatus) Confirmed() bool {
	switch {
	case s.Finalized(), s.ConfirmationStatus == levelConfirmed:
		return true
	default:
		return *s.Confirmations > 0
	}
}
