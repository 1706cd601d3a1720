package pg

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const maxSerializationRetries = 3

// ExecuteInTx runs fn inside a transaction at the requested isolation level,
// committing when fn succeeds. Serialization failures are retried with a
// fresh transaction.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	return executeRetryable(func() error {
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
		if err != nil {
			return err
		}

		if err := fn(tx); err != nil {
			// Rollback releases the connection back to the pool
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return errors.Wrap(rollbackErr, "failed to rollback transaction")
			}
			return err
		}
		return tx.Commit()
	})
}

func executeRetryable(fn func() error) error {
	var err error
	for i := 0; i <= maxSerializationRetries; i++ {
		err = fn()
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SerializationFailure
}
