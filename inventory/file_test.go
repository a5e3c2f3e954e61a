package inventory_test

import (
	"context"
	"testing"

	apperrors "github.com/lukextesst/user/internal/errors"
	"github.com/lukextesst/user/inventory"
	"github.com/stretchr/testify/require"
)

func TestFileRepo(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := inventory.NewFileRepo(dir)
	require.NoError(t, err)

	t.Run("inventory is created on first load", func(t *testing.T) {
		inv, err := repo.LoadInventory(ctx)
		require.NoError(t, err)
		require.Empty(t, inv.Available)
		require.NotEmpty(t, inv.Revision)

		again, err := repo.LoadInventory(ctx)
		require.NoError(t, err)
		require.Equal(t, inv.Revision, again.Revision)
	})

	t.Run("conditional inventory save", func(t *testing.T) {
		first, err := repo.LoadInventory(ctx)
		require.NoError(t, err)
		second, err := repo.LoadInventory(ctx)
		require.NoError(t, err)

		first.AddAvailable("AAAA-BBBB-CCCC-DDDD")
		require.NoError(t, repo.SaveInventory(ctx, first))

		second.AddAvailable("1111-2222-3333-4444")
		err = repo.SaveInventory(ctx, second)
		require.ErrorIs(t, err, apperrors.ErrRevisionConflict)

		reloaded, err := repo.LoadInventory(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"AAAA-BBBB-CCCC-DDDD"}, reloaded.Available)
		require.Equal(t, first.Revision, reloaded.Revision)
	})

	t.Run("ledger entries", func(t *testing.T) {
		ledger := inventory.Ledger{}
		ledger.Entry("addr:1.2.3.4", "2025-03-01").Generated = []string{"K1"}
		ledger.Entry("user:42", "2025-03-01").Generated = []string{"K1"}
		require.NoError(t, repo.SaveLedger(ctx, ledger))
		require.NotEmpty(t, ledger["user:42"].Revision)

		subset, err := repo.LoadLedgerEntries(ctx, "user:42", "user:missing")
		require.NoError(t, err)
		require.Len(t, subset, 1)
		require.Equal(t, []string{"K1"}, subset["user:42"].Generated)

		// Inserting an entry that already exists is a conflict and nothing is written.
		stale := inventory.Ledger{}
		stale.Entry("user:7", "2025-03-01")
		stale.Entry("user:42", "2025-03-01")
		err = repo.SaveLedger(ctx, stale)
		require.ErrorIs(t, err, apperrors.ErrRevisionConflict)

		all, err := repo.LoadLedger(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("documents survive a new repo instance", func(t *testing.T) {
		reopened, err := inventory.NewFileRepo(dir)
		require.NoError(t, err)

		inv, err := reopened.LoadInventory(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"AAAA-BBBB-CCCC-DDDD"}, inv.Available)

		ledger, err := reopened.LoadLedger(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"K1"}, ledger["addr:1.2.3.4"].Generated)
	})
}
