package repofakes

import (
	"context"
	"sync"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/inventory"
)

// FakeRepo is an in-memory inventory.Repo with the same revision semantics as the real backends.
type FakeRepo struct {
	mu        sync.RWMutex
	inventory *inventory.Inventory
	ledger    inventory.Ledger

	// BeforeSaveLedger, when set, runs before each SaveLedger checks revisions. Tests use it to
	// slip a competing write in between a caller's load and save.
	BeforeSaveLedger func(ledger inventory.Ledger)
}

var _ inventory.Repo = (*FakeRepo)(nil)

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		ledger: inventory.Ledger{},
	}
}

func (r *FakeRepo) LoadInventory(_ context.Context) (*inventory.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inventory == nil {
		r.inventory = inventory.NewInventory()
		r.inventory.Revision = inventory.NewRevision()
	}
	return r.inventory.Clone(), nil
}

func (r *FakeRepo) SaveInventory(_ context.Context, inv *inventory.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := ""
	if r.inventory != nil {
		current = r.inventory.Revision
	}
	if current != inv.Revision {
		return apperrors.ErrRevisionConflict
	}

	inv.Revision = inventory.NewRevision()
	r.inventory = inv.Clone()
	return nil
}

func (r *FakeRepo) LoadLedger(_ context.Context) (inventory.Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger := make(inventory.Ledger, len(r.ledger))
	for id, e := range r.ledger {
		ledger[id] = e.Clone()
	}
	return ledger, nil
}

func (r *FakeRepo) LoadLedgerEntries(_ context.Context, ids ...string) (inventory.Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger := make(inventory.Ledger, len(ids))
	for _, id := range ids {
		if e, ok := r.ledger[id]; ok {
			ledger[id] = e.Clone()
		}
	}
	return ledger, nil
}

func (r *FakeRepo) SaveLedger(_ context.Context, ledger inventory.Ledger) error {
	if r.BeforeSaveLedger != nil {
		r.BeforeSaveLedger(ledger)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range ledger {
		current := ""
		if e, ok := r.ledger[id]; ok {
			current = e.Revision
		}
		if current != entry.Revision {
			return apperrors.ErrRevisionConflict
		}
	}

	for id, entry := range ledger {
		entry.Revision = inventory.NewRevision()
		r.ledger[id] = entry.Clone()
	}
	return nil
}

func (r *FakeRepo) Close() error {
	return nil
}

// Entry returns a copy of the stored ledger entry, or nil.
func (r *FakeRepo) Entry(id string) *inventory.LedgerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.ledger[id]; ok {
		return e.Clone()
	}
	return nil
}

// Put stores entry unconditionally.
func (r *FakeRepo) Put(id string, entry *inventory.LedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := entry.Clone()
	stored.Revision = inventory.NewRevision()
	r.ledger[id] = stored
}

// PutInventory replaces the stored inventory unconditionally.
func (r *FakeRepo) PutInventory(inv *inventory.Inventory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := inv.Clone()
	stored.Revision = inventory.NewRevision()
	r.inventory = stored
}
