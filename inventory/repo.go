package inventory

import (
	"context"
)

// Repo persists the inventory and ledger documents.
//
// Saves are conditional: a document is written only if the stored revision still equals the
// Revision it was loaded with (an empty Revision means "must not exist yet"). A stale write fails
// with errors.ErrRevisionConflict and leaves storage untouched. On success the saved values are
// stamped with their new Revision.
type Repo interface {
	// LoadInventory returns the singleton, creating an empty one on first use.
	LoadInventory(ctx context.Context) (*Inventory, error)
	SaveInventory(ctx context.Context, inv *Inventory) error

	// LoadLedger returns every entry.
	LoadLedger(ctx context.Context) (Ledger, error)
	// LoadLedgerEntries returns the entries that exist among ids.
	LoadLedgerEntries(ctx context.Context, ids ...string) (Ledger, error)
	// SaveLedger upserts every entry of ledger, all or nothing.
	SaveLedger(ctx context.Context, ledger Ledger) error

	Close() error
}
