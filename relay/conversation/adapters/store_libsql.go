package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
)

// LibSQLHistoryStore implements HistoryStore on the conversation_histories table.
type LibSQLHistoryStore struct {
	db *sql.DB
}

// NewLibSQLHistoryStore creates a new LibSQL history store. The schema must
// already be migrated.
func NewLibSQLHistoryStore(db *sql.DB) *LibSQLHistoryStore {
	return &LibSQLHistoryStore{db: db}
}

// FetchRecent loads the last limit exchanges for an owner, newest first.
func (s *LibSQLHistoryStore) FetchRecent(ctx context.Context, ownerID string, limit int) ([]ports.StoredExchange, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, user_message, ai_message
		FROM conversation_histories
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query history: %w", ports.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var exchanges []ports.StoredExchange
	for rows.Next() {
		var ex ports.StoredExchange
		if err := rows.Scan(&ex.ID, &ex.OwnerID, &ex.UserMessage, &ex.AIMessage); err != nil {
			return nil, fmt.Errorf("%w: failed to scan history row: %w", ports.ErrStoreUnavailable, err)
		}
		exchanges = append(exchanges, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating history: %w", ports.ErrStoreUnavailable, err)
	}

	return exchanges, nil
}

// Begin checks out a dedicated connection and opens a transaction on it.
func (s *LibSQLHistoryStore) Begin(ctx context.Context) (ports.HistoryTx, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to acquire connection: %w", ports.ErrStoreUnavailable, err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to begin transaction: %w", ports.ErrStoreUnavailable, err)
	}

	return &libsqlTx{conn: conn, tx: tx}, nil
}

// libsqlTx owns one pooled connection for the lifetime of a transaction.
type libsqlTx struct {
	mu     sync.Mutex
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

func (t *libsqlTx) Save(ctx context.Context, ownerID, userMessage, aiMessage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tx == nil {
		return fmt.Errorf("%w: save on finished transaction: %w", ports.ErrStoreUnavailable, sql.ErrTxDone)
	}

	query := `
		INSERT INTO conversation_histories (user_id, user_message, ai_message)
		VALUES (?, ?, ?)
	`
	if _, err := t.tx.ExecContext(ctx, query, ownerID, userMessage, aiMessage); err != nil {
		return fmt.Errorf("%w: failed to save exchange: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

func (t *libsqlTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tx == nil {
		return fmt.Errorf("%w: commit on finished transaction: %w", ports.ErrStoreUnavailable, sql.ErrTxDone)
	}
	tx := t.tx
	t.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

// Rollback is a no-op once the transaction has finished.
func (t *libsqlTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked()
}

func (t *libsqlTx) rollbackLocked() error {
	if t.tx == nil {
		return nil
	}
	tx := t.tx
	t.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: failed to rollback transaction: %w", ports.ErrStoreUnavailable, err)
	}
	return nil
}

// Close rolls back an open transaction and returns the connection to the pool.
func (t *libsqlTx) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	rbErr := t.rollbackLocked()
	if err := t.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return errors.Join(rbErr, fmt.Errorf("%w: failed to release connection: %w", ports.ErrStoreUnavailable, err))
	}
	return rbErr
}

// Ensure LibSQLHistoryStore implements the HistoryStore interface.
var _ ports.HistoryStore = (*LibSQLHistoryStore)(nil)
