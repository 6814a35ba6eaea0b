package adapters

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/ZanzyTHEbar/ai-counselor/relay/db"
)

func newTestLibSQLStore(t *testing.T) *LibSQLHistoryStore {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Connect(ctx, db.Options{DSN: "file:" + filepath.Join(t.TempDir(), "history.db")}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(ctx, conn, zerolog.Nop()))
	return NewLibSQLHistoryStore(conn)
}

// historyStores runs the same contract tests against every implementation.
func historyStores(t *testing.T) map[string]ports.HistoryStore {
	return map[string]ports.HistoryStore{
		"libsql": newTestLibSQLStore(t),
		"memory": NewMemoryHistoryStore(),
	}
}

func saveCommitted(t *testing.T, store ports.HistoryStore, owner, user, ai string) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Close()
	require.NoError(t, tx.Save(ctx, owner, user, ai))
	require.NoError(t, tx.Commit())
}

func TestHistoryStore_SaveThenFetch(t *testing.T) {
	for name, store := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saveCommitted(t, store, "U001", "hello", "hi there")

			got, err := store.FetchRecent(ctx, "U001", 10)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "U001", got[0].OwnerID)
			assert.Equal(t, "hello", got[0].UserMessage)
			assert.Equal(t, "hi there", got[0].AIMessage)
			assert.Positive(t, got[0].ID)
		})
	}
}

func TestHistoryStore_FetchRecentNewestFirstAndLimited(t *testing.T) {
	for name, store := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 12; i++ {
				saveCommitted(t, store, "U001", fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))
			}
			saveCommitted(t, store, "U002", "other", "owner")

			got, err := store.FetchRecent(ctx, "U001", 10)
			require.NoError(t, err)
			require.Len(t, got, 10)
			assert.Equal(t, "u12", got[0].UserMessage)
			assert.Equal(t, "u3", got[9].UserMessage)
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i-1].ID, got[i].ID)
			}

			none, err := store.FetchRecent(ctx, "U404", 10)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestHistoryStore_RollbackDiscardsWrites(t *testing.T) {
	for name, store := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tx, err := store.Begin(ctx)
			require.NoError(t, err)

			require.NoError(t, tx.Save(ctx, "U001", "hello", "hi"))
			require.NoError(t, tx.Rollback())
			// rollback after rollback is a no-op
			require.NoError(t, tx.Rollback())
			require.NoError(t, tx.Close())

			got, err := store.FetchRecent(ctx, "U001", 10)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestHistoryStore_CloseRollsBackOpenTransaction(t *testing.T) {
	for name, store := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tx, err := store.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.Save(ctx, "U001", "hello", "hi"))

			require.NoError(t, tx.Close())
			require.NoError(t, tx.Close())

			got, err := store.FetchRecent(ctx, "U001", 10)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestHistoryStore_RollbackAfterCommitIsNoop(t *testing.T) {
	for name, store := range historyStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tx, err := store.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.Save(ctx, "U001", "hello", "hi"))
			require.NoError(t, tx.Commit())

			assert.NoError(t, tx.Rollback())
			assert.Error(t, tx.Commit())
			assert.Error(t, tx.Save(ctx, "U001", "again", "no"))
			assert.NoError(t, tx.Close())

			got, err := store.FetchRecent(ctx, "U001", 10)
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestLibSQLHistoryStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Connect(ctx, db.Options{DSN: "file:" + filepath.Join(t.TempDir(), "closed.db")}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, conn, zerolog.Nop()))
	store := NewLibSQLHistoryStore(conn)
	require.NoError(t, conn.Close())

	_, err = store.FetchRecent(ctx, "U001", 10)
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)

	_, err = store.Begin(ctx)
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
}

func TestMemoryHistoryStore_FailureInjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	boom := errors.New("boom")

	store.FailFetch = boom
	_, err := store.FetchRecent(ctx, "U001", 10)
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)
	store.FailFetch = nil

	store.FailCommit = boom
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Save(ctx, "U001", "hello", "hi"))
	err = tx.Commit()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.Equal(t, 1, store.OpenTransactions())
	require.NoError(t, tx.Close())
	assert.Equal(t, 0, store.OpenTransactions())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryHistoryStore_SaveAndRollbackFailuresAreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistoryStore()
	boom := errors.New("boom")
	store.FailSave = boom
	store.FailRollback = boom

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	err = tx.Save(ctx, "U001", "hello", "hi")
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	err = tx.Rollback()
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)

	// already rolled back
	assert.NoError(t, tx.Close())
	assert.Equal(t, 0, store.OpenTransactions())
}

func TestLibSQLHistoryStore_FinishedTransactionIsUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newTestLibSQLStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	err = tx.Save(ctx, "U001", "hello", "hi")
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	err = tx.Commit()
	assert.ErrorIs(t, err, ports.ErrStoreUnavailable)
	assert.NoError(t, tx.Close())
}
