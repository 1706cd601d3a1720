package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

var (
	ErrNotFound = errors.New("journal record not found")
	ErrExists   = errors.New("journal record already exists")
)

type Operation string

const (
	OperationUnknown            Operation = ""
	OperationInitializeGlobal   Operation = "initialize_global"
	OperationInitializeStrategy Operation = "initialize_strategy"
	OperationInitializeVault    Operation = "initialize_vault"
	OperationDeposit            Operation = "deposit"
	OperationInvest             Operation = "invest"
	OperationProcessClaims      Operation = "process_claims"
	OperationClaim              Operation = "claim"
	OperationRedeem             Operation = "redeem"
	OperationWithdraw           Operation = "withdraw"
	OperationInitializeUserFarm Operation = "initialize_user_farm"
	OperationConvertLp          Operation = "convert_lp"
	OperationHarvestRewards     Operation = "harvest_rewards"
	OperationRevertLp           Operation = "revert_lp"
	OperationSwapRewards        Operation = "swap_rewards"
)

// Record is a single submitted vault operation. Records are append only.
type Record struct {
	Id uint64

	EventId   uuid.UUID
	Signature string
	Operation Operation

	Vault string
	Mint  string
	Owner string

	Amount uint64

	// Predicted vault state when the operation was submitted
	State vault.State

	CreatedAt time.Time
}

type Store interface {
	// Put saves a new record. ErrExists is returned if a record with the
	// same signature was already saved.
	Put(ctx context.Context, record *Record) error

	// GetBySignature gets the record for a transaction signature
	GetBySignature(ctx context.Context, signature string) (*Record, error)

	// GetAllByVault gets a page of records for a vault
	GetAllByVault(ctx context.Context, vault string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByOperation counts the records for a vault and operation
	CountByOperation(ctx context.Context, vault string, operation Operation) (uint64, error)
}

func (r *Record) Validate() error {
	if r.EventId == uuid.Nil {
		return errors.New("event id is required")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	if r.Operation == OperationUnknown {
		return errors.New("operation is required")
	}

	if len(r.Vault) == 0 {
		return errors.New("vault is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		EventId:   r.EventId,
		Signature: r.Signature,
		Operation: r.Operation,

		Vault: r.Vault,
		Mint:  r.Mint,
		Owner: r.Owner,

		Amount: r.Amount,
		State:  r.State,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.EventId = r.EventId
	dst.Signature = r.Signature
	dst.Operation = r.Operation

	dst.Vault = r.Vault
	dst.Mint = r.Mint
	dst.Owner = r.Owner

	dst.Amount = r.Amount
	dst.State = r.State

	dst.CreatedAt = r.CreatedAt
}
