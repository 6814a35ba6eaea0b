package ports

import "context"

// StoredExchange is one persisted user/assistant pair.
type StoredExchange struct {
	ID          int64 // monotonic ordering key
	OwnerID     string
	UserMessage string
	AIMessage   string
}

// HistoryStore reads conversation history and opens write transactions.
type HistoryStore interface {
	// FetchRecent returns at most limit exchanges for ownerID, newest first.
	FetchRecent(ctx context.Context, ownerID string, limit int) ([]StoredExchange, error)
	// Begin acquires a connection owned by the caller and opens a transaction on it.
	Begin(ctx context.Context) (HistoryTx, error)
}

// HistoryTx is a unit of work over a single exclusively held connection.
// Close must always be called; it rolls back an open transaction.
type HistoryTx interface {
	Save(ctx context.Context, ownerID, userMessage, aiMessage string) error
	Commit() error
	Rollback() error
	Close() error
}
