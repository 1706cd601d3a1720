package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	pgutil "github.com/code-payments/tranche-vault/pkg/database/postgres"
	q "github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

const (
	tableName = "vault__core_operationjournal"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	EventId   string `db:"event_id"`
	Signature string `db:"signature"`
	Operation string `db:"operation"`

	Vault string `db:"vault"`
	Mint  string `db:"mint"`
	Owner string `db:"owner"`

	Amount uint64 `db:"amount"`
	State  int    `db:"state"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *journal.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		EventId:   obj.EventId.String(),
		Signature: obj.Signature,
		Operation: string(obj.Operation),

		Vault: obj.Vault,
		Mint:  obj.Mint,
		Owner: obj.Owner,

		Amount: obj.Amount,
		State:  int(obj.State),

		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) (*journal.Record, error) {
	eventId, err := uuid.Parse(obj.EventId)
	if err != nil {
		return nil, err
	}

	return &journal.Record{
		Id: uint64(obj.Id.Int64),

		EventId:   eventId,
		Signature: obj.Signature,
		Operation: journal.Operation(obj.Operation),

		Vault: obj.Vault,
		Mint:  obj.Mint,
		Owner: obj.Owner,

		Amount: obj.Amount,
		State:  vault.State(obj.State),

		CreatedAt: obj.CreatedAt,
	}, nil
}

func (m *model) dbPut(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(event_id, signature, operation, vault, mint, owner, amount, state, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, event_id, signature, operation, vault, mint, owner, amount, state, created_at`

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.EventId,
			m.Signature,
			m.Operation,
			m.Vault,
			m.Mint,
			m.Owner,
			m.Amount,
			m.State,
			m.CreatedAt.UTC(),
		).StructScan(m)
		return pgutil.CheckUniqueViolation(err, journal.ErrExists)
	})
}

func dbGetBySignature(ctx context.Context, db *sqlx.DB, signature string) (*model, error) {
	var res model

	query := `SELECT id, event_id, signature, operation, vault, mint, owner, amount, state, created_at FROM ` + tableName + `
		WHERE signature = $1
	`

	err := db.GetContext(ctx, &res, query, signature)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, journal.ErrNotFound)
	}
	return &res, nil
}

func dbGetAllByVault(ctx context.Context, db *sqlx.DB, vault string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT id, event_id, signature, operation, vault, mint, owner, amount, state, created_at FROM ` + tableName + `
		WHERE (vault = $1)
	`

	opts := []interface{}{vault}
	query, opts = q.Paginate(query, opts, cursor, limit, direction, q.Dollar)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, journal.ErrNotFound)
	}

	if len(res) == 0 {
		return nil, journal.ErrNotFound
	}
	return res, nil
}

func dbCountByOperation(ctx context.Context, db *sqlx.DB, vault string, operation journal.Operation) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE vault = $1 AND operation = $2
	`

	err := db.GetContext(ctx, &res, query, vault, string(operation))
	if err != nil {
		return 0, err
	}
	return res, nil
}
