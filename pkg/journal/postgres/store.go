package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/journal"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres journal.Store
func New(db *sql.DB) journal.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Put implements journal.Store.Put
func (s *store) Put(ctx context.Context, record *journal.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	err = model.dbPut(ctx, s.db)
	if err != nil {
		return err
	}

	res, err := fromModel(model)
	if err != nil {
		return err
	}
	res.CopyTo(record)

	return nil
}

// GetBySignature implements journal.Store.GetBySignature
func (s *store) GetBySignature(ctx context.Context, signature string) (*journal.Record, error) {
	model, err := dbGetBySignature(ctx, s.db, signature)
	if err != nil {
		return nil, err
	}
	return fromModel(model)
}

// GetAllByVault implements journal.Store.GetAllByVault
func (s *store) GetAllByVault(ctx context.Context, vault string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*journal.Record, error) {
	models, err := dbGetAllByVault(ctx, s.db, vault, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*journal.Record, len(models))
	for i, model := range models {
		res[i], err = fromModel(model)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// CountByOperation implements journal.Store.CountByOperation
func (s *store) CountByOperation(ctx context.Context, vault string, operation journal.Operation) (uint64, error) {
	return dbCountByOperation(ctx, s.db, vault, operation)
}
