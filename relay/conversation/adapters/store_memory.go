package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
)

// MemoryHistoryStore is an in-process HistoryStore for development and tests.
// Writes become visible only on Commit. The Fail* hooks inject errors.
type MemoryHistoryStore struct {
	mu     sync.Mutex
	rows   []ports.StoredExchange
	nextID int64

	FailFetch    error
	FailBegin    error
	FailSave     error
	FailCommit   error
	FailRollback error

	opened int
	closed int
}

// NewMemoryHistoryStore creates an empty in-memory store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{nextID: 1}
}

// FetchRecent returns at most limit exchanges for ownerID, newest first.
func (s *MemoryHistoryStore) FetchRecent(ctx context.Context, ownerID string, limit int) ([]ports.StoredExchange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailFetch != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, s.FailFetch)
	}

	var out []ports.StoredExchange
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if s.rows[i].OwnerID == ownerID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

// Begin opens a buffered transaction.
func (s *MemoryHistoryStore) Begin(ctx context.Context) (ports.HistoryTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailBegin != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, s.FailBegin)
	}
	s.opened++
	return &memoryTx{store: s, open: true}, nil
}

// Append stores an exchange directly, outside any transaction.
func (s *MemoryHistoryStore) Append(ownerID, userMessage, aiMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(ownerID, userMessage, aiMessage)
}

func (s *MemoryHistoryStore) appendLocked(ownerID, userMessage, aiMessage string) {
	s.rows = append(s.rows, ports.StoredExchange{
		ID:          s.nextID,
		OwnerID:     ownerID,
		UserMessage: userMessage,
		AIMessage:   aiMessage,
	})
	s.nextID++
}

// Len returns the number of committed exchanges.
func (s *MemoryHistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// OpenTransactions reports transactions begun but not yet closed.
func (s *MemoryHistoryStore) OpenTransactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened - s.closed
}

type memoryTx struct {
	store   *MemoryHistoryStore
	pending []ports.StoredExchange
	open    bool
	closed  bool
}

func (t *memoryTx) Save(ctx context.Context, ownerID, userMessage, aiMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.open {
		return fmt.Errorf("%w: save on finished transaction: %w", ports.ErrStoreUnavailable, sql.ErrTxDone)
	}

	t.store.mu.Lock()
	fail := t.store.FailSave
	t.store.mu.Unlock()
	if fail != nil {
		return fmt.Errorf("%w: failed to save exchange: %w", ports.ErrStoreUnavailable, fail)
	}

	t.pending = append(t.pending, ports.StoredExchange{
		OwnerID:     ownerID,
		UserMessage: userMessage,
		AIMessage:   aiMessage,
	})
	return nil
}

func (t *memoryTx) Commit() error {
	if !t.open {
		return fmt.Errorf("%w: commit on finished transaction: %w", ports.ErrStoreUnavailable, sql.ErrTxDone)
	}
	t.open = false

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.store.FailCommit != nil {
		t.pending = nil
		return fmt.Errorf("%w: failed to commit transaction: %w", ports.ErrStoreUnavailable, t.store.FailCommit)
	}
	for _, ex := range t.pending {
		t.store.appendLocked(ex.OwnerID, ex.UserMessage, ex.AIMessage)
	}
	t.pending = nil
	return nil
}

// Rollback is a no-op once the transaction has finished.
func (t *memoryTx) Rollback() error {
	if !t.open {
		return nil
	}
	t.open = false
	t.pending = nil

	t.store.mu.Lock()
	fail := t.store.FailRollback
	t.store.mu.Unlock()
	if fail != nil {
		return fmt.Errorf("%w: failed to rollback transaction: %w", ports.ErrStoreUnavailable, fail)
	}
	return nil
}

func (t *memoryTx) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	rbErr := t.Rollback()

	t.store.mu.Lock()
	t.store.closed++
	t.store.mu.Unlock()
	return rbErr
}

// Ensure MemoryHistoryStore implements the HistoryStore interface.
var _ ports.HistoryStore = (*MemoryHistoryStore)(nil)
