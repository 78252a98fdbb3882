package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

// UnicodeLower is the SQL function folding text with Unicode case rules.
// The built-in LOWER only folds ASCII.
const UnicodeLower = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(UnicodeLower, 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Options tunes the SQLite connection. A nil *Options uses the defaults.
type Options struct {
	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration
	// MaxOpenConns limits the pool; in-memory databases always use one.
	MaxOpenConns int
}

func (o *Options) busyTimeout() time.Duration {
	if o == nil || o.BusyTimeout <= 0 {
		return 5 * time.Second
	}
	return o.BusyTimeout
}

// DB wraps the sqlx.DB for connection management
type DB struct {
	conn *sqlx.DB
}

// New opens and pings a SQLite database. path may be a file path, ":memory:"
// or a "file:" URI; foreign keys and a busy timeout are always enabled and
// file databases use WAL journaling.
func New(ctx context.Context, path string, opts *Options) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("failed to open db: empty path")
	}

	conn, err := sqlx.Open("sqlite", DSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// every connection to ":memory:" is a separate database
	if isMemory(path) {
		conn.SetMaxOpenConns(1)
	} else if opts != nil && opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &DB{conn: conn}, nil
}

// DSN appends the connection pragmas to path.
func DSN(path string, opts *Options) string {
	pragmas := []string{
		"_pragma=foreign_keys(on)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", opts.busyTimeout().Milliseconds()),
	}
	if !isMemory(path) {
		pragmas = append(pragmas, "_pragma=journal_mode(wal)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

func isMemory(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Exec executes a query
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// Get scans a single row into dest using its db struct tags.
func (db *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	return db.conn.GetContext(ctx, dest, query, args...)
}

// Select scans all rows into the slice pointed to by dest.
func (db *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	return db.conn.SelectContext(ctx, dest, query, args...)
}
