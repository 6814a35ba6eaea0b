package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// Options holds connection and pool settings for a libsql database.
type Options struct {
	DSN            string // file:path.db for embedded, libsql:// or https:// for remote
	AuthToken      string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
	BusyTimeoutMs  int
}

// Connect opens a libsql database, applies pragmas and pool settings, and
// verifies connectivity. It does not run migrations.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) (*sql.DB, error) {
	dsn := opts.DSN
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	embedded := strings.HasPrefix(dsn, "file:")
	if embedded {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	} else if opts.AuthToken != "" {
		dsn = withAuthToken(dsn, opts.AuthToken)
	}

	logger.Info().Bool("embedded", embedded).Msg("connecting to libsql")

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	configurePool(db, opts, logger)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if embedded {
		if err := configurePragmas(ctx, db, opts); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// ensureDir creates the parent directory of an embedded database file.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create database directory %s: %w", dir, err)
	}
	return nil
}

func withAuthToken(dsn, token string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		if strings.Contains(dsn, "?") {
			return dsn + "&authToken=" + url.QueryEscape(token)
		}
		return dsn + "?authToken=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// configurePragmas applies PRAGMA settings to an embedded database.
func configurePragmas(ctx context.Context, db *sql.DB, opts Options) error {
	busy := opts.BusyTimeoutMs
	if busy <= 0 {
		busy = 5000
	}

	pragmaSettings := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", fmt.Sprintf("%d", busy)},
		{"foreign_keys", "ON"},
	}

	for _, setting := range pragmaSettings {
		// some PRAGMA statements return rows and libsql refuses Exec for those
		query := fmt.Sprintf("PRAGMA %s = %s", setting.name, setting.value)
		if _, err := db.ExecContext(ctx, query); err != nil {
			if !strings.Contains(err.Error(), "returned rows") {
				return fmt.Errorf("failed to set %s: %w", setting.name, err)
			}
			rows, qerr := db.QueryContext(ctx, query)
			if qerr != nil {
				return fmt.Errorf("failed to set %s: %w", setting.name, qerr)
			}
			rows.Close()
		}
	}

	return nil
}

// configurePool sets connection pooling parameters, falling back to defaults.
func configurePool(db *sql.DB, opts Options, logger zerolog.Logger) {
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)

	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = maxOpen
	}
	db.SetMaxIdleConns(maxIdle)

	idleTime := time.Duration(opts.ConnMaxIdleSec) * time.Second
	if idleTime <= 0 {
		idleTime = 5 * time.Minute
	}
	db.SetConnMaxIdleTime(idleTime)

	lifeTime := time.Duration(opts.ConnMaxLifeSec) * time.Second
	if lifeTime <= 0 {
		lifeTime = time.Hour
	}
	db.SetConnMaxLifetime(lifeTime)

	logger.Debug().
		Int("max_open", maxOpen).
		Int("max_idle", maxIdle).
		Dur("max_idle_time", idleTime).
		Dur("max_lifetime", lifeTime).
		Msg("connection pool configured")
}
