package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration
)

const (
	dirPerm  = 0750
	filePerm = 0600

	// openPingTimeout bounds the connection check in Open independently of
	// the caller's context.
	openPingTimeout = 5 * time.Second
)

// DB is the daemon's local SQLite handle, used for session persistence and
// schema migrations. It embeds *sql.DB, so callers use the standard query
// methods directly.
type DB struct {
	*sql.DB
	path string
}

// Config describes how to open the database file.
type Config struct {
	Path        string
	WALMode     bool
	BusyTimeout int // seconds
}

// Open creates the database file and its parent directory if needed, applies
// the connection pragmas, and verifies the connection before returning.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The daemon is the only writer. One connection held open for the
	// process lifetime sidesteps SQLITE_BUSY between the session repository
	// and the migration runner.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, openPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The session table holds the backend auth token.
	if err := os.Chmod(cfg.Path, filePerm); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("restricting database file permissions: %w", err)
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close releases the underlying connection. Safe to call on an
// already-closed handle.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database still answers queries.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}
