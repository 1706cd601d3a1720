package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/journal"
	"github.com/code-payments/tranche-vault/pkg/solana/vault"
)

const (
	tableName = "operation_journal"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id   TEXT NOT NULL UNIQUE,
		signature  TEXT NOT NULL UNIQUE,
		operation  TEXT NOT NULL,
		vault      TEXT NOT NULL,
		mint       TEXT NOT NULL,
		owner      TEXT NOT NULL,
		amount     INTEGER NOT NULL,
		state      INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_` + tableName + `_vault ON ` + tableName + `(vault, operation)`,
}

type model struct {
	Id int64 `db:"id"`

	EventId   string `db:"event_id"`
	Signature string `db:"signature"`
	Operation string `db:"operation"`

	Vault string `db:"vault"`
	Mint  string `db:"mint"`
	Owner string `db:"owner"`

	Amount int64 `db:"amount"`
	State  int   `db:"state"`

	// Unix milliseconds
	CreatedAt int64 `db:"created_at"`
}

type store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database file at path in WAL mode and applies
// the journal schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening sqlite database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error enabling wal mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error setting busy timeout")
	}

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "error migrating sqlite database")
		}
	}

	return db, nil
}

// New returns a new sqlite journal.Store over a database opened with Open
func New(db *sql.DB) journal.Store {
	return &store{
		db: sqlx.NewDb(db, "sqlite3"),
	}
}

// Put implements journal.Store.Put
func (s *store) Put(ctx context.Context, record *journal.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	m := &model{
		EventId:   record.EventId.String(),
		Signature: record.Signature,
		Operation: string(record.Operation),

		Vault: record.Vault,
		Mint:  record.Mint,
		Owner: record.Owner,

		Amount: int64(record.Amount),
		State:  int(record.State),

		CreatedAt: createdAt.UnixMilli(),
	}

	res, err := s.db.NamedExecContext(ctx, `INSERT INTO `+tableName+`
		(event_id, signature, operation, vault, mint, owner, amount, state, created_at)
		VALUES (:event_id, :signature, :operation, :vault, :mint, :owner, :amount, :state, :created_at)`,
		m,
	)
	if isUniqueViolation(err) {
		return journal.ErrExists
	} else if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	record.Id = uint64(id)
	record.CreatedAt = time.UnixMilli(m.CreatedAt)
	return nil
}

// GetBySignature implements journal.Store.GetBySignature
func (s *store) GetBySignature(ctx context.Context, signature string) (*journal.Record, error) {
	var m model
	err := s.db.GetContext(ctx, &m, `SELECT id, event_id, signature, operation, vault, mint, owner, amount, state, created_at
		FROM `+tableName+` WHERE signature = ?`,
		signature,
	)
	if err == sql.ErrNoRows {
		return nil, journal.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return fromModel(&m)
}

// GetAllByVault implements journal.Store.GetAllByVault
func (s *store) GetAllByVault(ctx context.Context, vault string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*journal.Record, error) {
	stmt, args := query.Paginate(
		`SELECT id, event_id, signature, operation, vault, mint, owner, amount, state, created_at
		FROM `+tableName+` WHERE (vault = ?)`,
		[]interface{}{vault},
		cursor, limit, direction,
		query.Question,
	)

	var models []*model
	if err := s.db.SelectContext(ctx, &models, stmt, args...); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, journal.ErrNotFound
	}

	res := make([]*journal.Record, len(models))
	for i, m := range models {
		record, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		res[i] = record
	}
	return res, nil
}

// CountByOperation implements journal.Store.CountByOperation
func (s *store) CountByOperation(ctx context.Context, vault string, operation journal.Operation) (uint64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+tableName+` WHERE vault = ? AND operation = ?`,
		vault, string(operation),
	)
	if err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (s *store) reset() error {
	_, err := s.db.Exec(`DELETE FROM ` + tableName)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM sqlite_sequence WHERE name = ?`, tableName)
	return err
}

func fromModel(m *model) (*journal.Record, error) {
	eventId, err := uuid.Parse(m.EventId)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event id")
	}

	return &journal.Record{
		Id: uint64(m.Id),

		EventId:   eventId,
		Signature: m.Signature,
		Operation: journal.Operation(m.Operation),

		Vault: m.Vault,
		Mint:  m.Mint,
		Owner: m.Owner,

		Amount: uint64(m.Amount),
		State:  vault.State(m.State),

		CreatedAt: time.UnixMilli(m.CreatedAt),
	}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
