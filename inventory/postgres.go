package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/pkg/errors"
)

// Lock ID for pg_advisory_lock while migrating ("KEYGATE" in ASCII).
const migrationLockID = 0x4b455947415445

var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS inventory_documents (
		id TEXT PRIMARY KEY,
		body JSONB NOT NULL,
		revision TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS usage_ledger (
		subject TEXT PRIMARY KEY,
		body JSONB NOT NULL,
		revision TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

const (
	insertInventoryQuery = `INSERT INTO inventory_documents (id, body, revision) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`
	selectInventoryQuery = `SELECT body, revision FROM inventory_documents WHERE id = $1`
	updateInventoryQuery = `UPDATE inventory_documents SET body = $1, revision = $2, updated_at = now() WHERE id = $3 AND revision = $4`

	selectLedgerQuery       = `SELECT subject, body, revision FROM usage_ledger`
	selectLedgerSubsetQuery = `SELECT subject, body, revision FROM usage_ledger WHERE subject = ANY($1)`
	insertLedgerQuery       = `INSERT INTO usage_ledger (subject, body, revision) VALUES ($1, $2, $3) ON CONFLICT (subject) DO NOTHING`
	updateLedgerQuery       = `UPDATE usage_ledger SET body = $1, revision = $2, updated_at = now() WHERE subject = $3 AND revision = $4`
)

type documentRow struct {
	Subject  string `db:"subject"`
	Body     []byte `db:"body"`
	Revision string `db:"revision"`
}

// PostgresRepo keeps each document as a JSONB row with a revision column.
type PostgresRepo struct {
	db *sqlx.DB
}

var _ Repo = (*PostgresRepo)(nil)

// ConnectPostgres opens dsn and applies Migrations.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresRepo, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo Connect] connect")
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresRepo(db), nil
}

// Migrate applies Migrations under a session advisory lock. Lock, migrations and unlock share one
// connection so the unlock releases the lock this session took.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo Migrate] acquire connection")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return errors.Wrap(err, "[PostgresRepo Migrate] acquire migration lock")
	}

	migrationErr := func() error {
		for _, migration := range Migrations {
			if _, err := conn.ExecContext(ctx, migration); err != nil {
				return err
			}
		}
		return nil
	}()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
		return errors.Wrap(err, "[PostgresRepo Migrate] release migration lock")
	}
	if migrationErr != nil {
		return errors.Wrap(migrationErr, "[PostgresRepo Migrate] migrate")
	}
	return nil
}

// NewPostgresRepo wraps an already migrated database.
func NewPostgresRepo(db *sqlx.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) LoadInventory(ctx context.Context) (*Inventory, error) {
	body, err := json.Marshal(NewInventory())
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, insertInventoryQuery, InventoryDocumentID, body, NewRevision()); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo LoadInventory] create")
	}

	var row documentRow
	if err := r.db.GetContext(ctx, &row, selectInventoryQuery, InventoryDocumentID); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo LoadInventory] select")
	}

	inv := NewInventory()
	if err := json.Unmarshal(row.Body, inv); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo LoadInventory] malformed inventory document")
	}
	inv.Revision = row.Revision
	return inv, nil
}

func (r *PostgresRepo) SaveInventory(ctx context.Context, inv *Inventory) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	revision := NewRevision()
	var result sql.Result
	if inv.Revision == "" {
		result, err = r.db.ExecContext(ctx, insertInventoryQuery, InventoryDocumentID, body, revision)
	} else {
		result, err = r.db.ExecContext(ctx, updateInventoryQuery, body, revision, InventoryDocumentID, inv.Revision)
	}
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo SaveInventory]")
	}
	if err := expectOneRow(result); err != nil {
		return errors.Wrap(err, "[PostgresRepo SaveInventory]")
	}

	inv.Revision = revision
	return nil
}

func (r *PostgresRepo) LoadLedger(ctx context.Context) (Ledger, error) {
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, selectLedgerQuery); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo LoadLedger]")
	}
	return ledgerFromRows(rows)
}

func (r *PostgresRepo) LoadLedgerEntries(ctx context.Context, ids ...string) (Ledger, error) {
	if len(ids) == 0 {
		return Ledger{}, nil
	}
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, selectLedgerSubsetQuery, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo LoadLedgerEntries]")
	}
	return ledgerFromRows(rows)
}

func (r *PostgresRepo) SaveLedger(ctx context.Context, ledger Ledger) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo SaveLedger] begin")
	}

	revisions := make(map[string]string, len(ledger))
	for _, id := range sortedIDs(ledger) {
		entry := ledger[id]
		body, err := json.Marshal(entry)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		revision := NewRevision()
		var result sql.Result
		if entry.Revision == "" {
			result, err = tx.ExecContext(ctx, insertLedgerQuery, id, body, revision)
		} else {
			result, err = tx.ExecContext(ctx, updateLedgerQuery, body, revision, id, entry.Revision)
		}
		if err == nil {
			err = expectOneRow(result)
		}
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "[PostgresRepo SaveLedger] %s", id)
		}
		revisions[id] = revision
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "[PostgresRepo SaveLedger] commit")
	}

	for id, revision := range revisions {
		ledger[id].Revision = revision
	}
	return nil
}

func (r *PostgresRepo) Close() error {
	return r.db.Close()
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return apperrors.ErrRevisionConflict
	}
	return nil
}

func ledgerFromRows(rows []documentRow) (Ledger, error) {
	ledger := make(Ledger, len(rows))
	for _, row := range rows {
		entry := &LedgerEntry{}
		if err := json.Unmarshal(row.Body, entry); err != nil {
			return nil, fmt.Errorf("malformed ledger entry %s: %w", row.Subject, err)
		}
		entry.Generated = nonNil(entry.Generated)
		entry.Used = nonNil(entry.Used)
		entry.Revision = row.Revision
		ledger[row.Subject] = entry
	}
	return ledger, nil
}

func sortedIDs(ledger Ledger) []string {
	ids := make([]string, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
