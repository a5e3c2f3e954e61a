package inventory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/pkg/errors"
)

const (
	inventoryFileName = "inventory.json"
	ledgerFileName    = "ledger.json"
)

type storedInventory struct {
	Revision string `json:"revision"`
	*Inventory
}

type storedLedgerEntry struct {
	Revision string `json:"revision"`
	*LedgerEntry
}

// FileRepo keeps the documents as JSON files in a data folder. Writes go to a temporary file that
// is renamed over the original, so a crash leaves either the old or the new document on disk.
// Revisions are only checked within this process.
type FileRepo struct {
	dataDir string
	mu      sync.Mutex
}

var _ Repo = (*FileRepo)(nil)

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "[FileRepo New] create data folder")
	}
	return &FileRepo{dataDir: dataDir}, nil
}

func (r *FileRepo) LoadInventory(_ context.Context) (*Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.readInventory()
	if err != nil {
		return nil, err
	}
	if stored.Revision == "" {
		stored.Revision = NewRevision()
		if err := r.writeJSON(inventoryFileName, stored); err != nil {
			return nil, err
		}
	}

	inv := stored.Inventory.Clone()
	inv.Revision = stored.Revision
	return inv, nil
}

func (r *FileRepo) SaveInventory(_ context.Context, inv *Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.readInventory()
	if err != nil {
		return err
	}
	if stored.Revision != inv.Revision {
		return apperrors.ErrRevisionConflict
	}

	revision := NewRevision()
	if err := r.writeJSON(inventoryFileName, storedInventory{Revision: revision, Inventory: inv}); err != nil {
		return err
	}
	inv.Revision = revision
	return nil
}

func (r *FileRepo) LoadLedger(_ context.Context) (Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.readLedger()
	if err != nil {
		return nil, err
	}
	ledger := make(Ledger, len(stored))
	for id, s := range stored {
		ledger[id] = toEntry(s)
	}
	return ledger, nil
}

func (r *FileRepo) LoadLedgerEntries(_ context.Context, ids ...string) (Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.readLedger()
	if err != nil {
		return nil, err
	}
	ledger := make(Ledger, len(ids))
	for _, id := range ids {
		if s, ok := stored[id]; ok {
			ledger[id] = toEntry(s)
		}
	}
	return ledger, nil
}

func (r *FileRepo) SaveLedger(_ context.Context, ledger Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.readLedger()
	if err != nil {
		return err
	}

	for id, entry := range ledger {
		current := ""
		if s, ok := stored[id]; ok {
			current = s.Revision
		}
		if current != entry.Revision {
			return errors.Wrapf(apperrors.ErrRevisionConflict, "[FileRepo SaveLedger] %s", id)
		}
	}

	revisions := make(map[string]string, len(ledger))
	for id, entry := range ledger {
		revisions[id] = NewRevision()
		stored[id] = storedLedgerEntry{Revision: revisions[id], LedgerEntry: entry}
	}
	if err := r.writeJSON(ledgerFileName, stored); err != nil {
		return err
	}

	for id, revision := range revisions {
		ledger[id].Revision = revision
	}
	return nil
}

func (r *FileRepo) Close() error {
	return nil
}

func (r *FileRepo) readInventory() (storedInventory, error) {
	stored := storedInventory{Inventory: NewInventory()}
	found, err := r.readJSON(inventoryFileName, &stored)
	if err != nil || !found {
		return storedInventory{Inventory: NewInventory()}, err
	}
	stored.Inventory = stored.Inventory.Clone()
	return stored, nil
}

func (r *FileRepo) readLedger() (map[string]storedLedgerEntry, error) {
	stored := map[string]storedLedgerEntry{}
	if _, err := r.readJSON(ledgerFileName, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *FileRepo) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(r.dataDir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "[FileRepo] read %s", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "[FileRepo] malformed %s", name)
	}
	return true, nil
}

func (r *FileRepo) writeJSON(name string, v any) error {
	path := filepath.Join(r.dataDir, name)
	tempPath := path + ".tmp"

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "[FileRepo] write %s", name)
	}
	return os.Rename(tempPath, path)
}

func toEntry(s storedLedgerEntry) *LedgerEntry {
	if s.LedgerEntry == nil {
		return &LedgerEntry{Generated: []string{}, Used: []string{}, Revision: s.Revision}
	}
	e := s.LedgerEntry.Clone()
	e.Revision = s.Revision
	return e
}
