// Package inventory holds the durable documents of the key gate: the global key inventory and
// the per-address / per-subject usage ledger. Neither ever expires.
package inventory

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	InventoryDocumentID = "inventory"
	dateLayout          = "2006-01-02"
)

// Inventory is the singleton document of every key ever generated. A key is in at most one of
// Available and Used. AdminIssued is a reserved namespace that generation never collides with.
type Inventory struct {
	Available   []string `json:"available_keys"`
	Used        []string `json:"used_keys"`
	AdminIssued []string `json:"admin_keys"`

	// Revision of the stored document this value was loaded from. Empty for a document that
	// has never been saved.
	Revision string `json:"-"`
}

func NewInventory() *Inventory {
	return &Inventory{
		Available:   []string{},
		Used:        []string{},
		AdminIssued: []string{},
	}
}

// Contains reports whether key is taken in any namespace.
func (inv *Inventory) Contains(key string) bool {
	return slices.Contains(inv.Available, key) || slices.Contains(inv.Used, key) || slices.Contains(inv.AdminIssued, key)
}

func (inv *Inventory) IsUsed(key string) bool {
	return slices.Contains(inv.Used, key)
}

// AddAvailable appends key unless it is already known.
func (inv *Inventory) AddAvailable(key string) bool {
	if inv.Contains(key) {
		return false
	}
	inv.Available = append(inv.Available, key)
	return true
}

// AddAdminIssued appends key to the reserved namespace unless it is already known.
func (inv *Inventory) AddAdminIssued(key string) bool {
	if inv.Contains(key) {
		return false
	}
	inv.AdminIssued = append(inv.AdminIssued, key)
	return true
}

// MarkUsed moves key from Available to Used. Applying it twice is a no-op.
func (inv *Inventory) MarkUsed(key string) bool {
	if inv.IsUsed(key) {
		return false
	}
	inv.Available = slices.DeleteFunc(inv.Available, func(k string) bool { return k == key })
	inv.Used = append(inv.Used, key)
	return true
}

func (inv *Inventory) Clone() *Inventory {
	return &Inventory{
		Available:   slices.Clone(nonNil(inv.Available)),
		Used:        slices.Clone(nonNil(inv.Used)),
		AdminIssued: slices.Clone(nonNil(inv.AdminIssued)),
		Revision:    inv.Revision,
	}
}

// LedgerEntry records the keys generated and used by one address or subject on Date.
type LedgerEntry struct {
	Date      string   `json:"date"`
	Generated []string `json:"generated"`
	Used      []string `json:"used"`

	Revision string `json:"-"`
}

func NewLedgerEntry(today string) *LedgerEntry {
	return &LedgerEntry{Date: today, Generated: []string{}, Used: []string{}}
}

// RollOver clears the sequences when the entry is stamped with a day other than today.
// It reports whether anything changed; repeated calls on the same day are no-ops.
func (e *LedgerEntry) RollOver(today string) bool {
	if e.Date == today {
		return false
	}
	e.Date = today
	e.Generated = []string{}
	e.Used = []string{}
	return true
}

func (e *LedgerEntry) HasGenerated(key string) bool {
	return slices.Contains(e.Generated, key)
}

func (e *LedgerEntry) HasUsed(key string) bool {
	return slices.Contains(e.Used, key)
}

// Active returns the keys generated but not yet used.
func (e *LedgerEntry) Active() []string {
	active := []string{}
	for _, k := range e.Generated {
		if !e.HasUsed(k) {
			active = append(active, k)
		}
	}
	return active
}

func (e *LedgerEntry) Clone() *LedgerEntry {
	return &LedgerEntry{
		Date:      e.Date,
		Generated: slices.Clone(nonNil(e.Generated)),
		Used:      slices.Clone(nonNil(e.Used)),
		Revision:  e.Revision,
	}
}

// Ledger maps ledger ids (see AddressID and SubjectID) to entries.
type Ledger map[string]*LedgerEntry

// Entry returns the entry for id, creating an unsaved one stamped today when missing.
func (l Ledger) Entry(id, today string) *LedgerEntry {
	e, ok := l[id]
	if !ok {
		e = NewLedgerEntry(today)
		l[id] = e
	}
	return e
}

func AddressID(address string) string {
	return "addr:" + address
}

func SubjectID(subjectID string) string {
	return "user:" + subjectID
}

// Today is the UTC calendar date used to stamp ledger entries.
func Today(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// NewRevision returns a fresh document revision.
func NewRevision() string {
	return uuid.NewString()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
