package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// MigrationsFS holds the embedded migration scripts. The migrations package
// assigns its embed.FS here from an init function, which keeps the SQL
// sources and the runner in separate packages without an import cycle.
var (
	MigrationsFS embed.FS

	// MigrationsDir is the directory within MigrationsFS containing the
	// .sql files.
	MigrationsDir = "migrations"
)

// A migration pairs an up script with its optional down script. The version
// is the date_sequence filename prefix and orders application.
type migration struct {
	version string
	label   string
	up      string
	down    string
}

// Migrate applies every migration not yet recorded in schema_migrations,
// oldest first, each inside its own transaction. Re-running is a no-op.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.ensureVersionTable(ctx); err != nil {
		return err
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := db.applyUp(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.version, m.label, err)
		}
	}
	return nil
}

// MigrateDown reverts the most recently applied migration. It fails if
// nothing has been applied or if the migration has no down script.
func (db *DB) MigrateDown(ctx context.Context) error {
	var latest string
	err := db.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("no applied migrations to revert")
	}
	if err != nil {
		return fmt.Errorf("reading latest migration version: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version != latest {
			continue
		}
		if m.down == "" {
			return fmt.Errorf("migration %s has no down script", latest)
		}
		return db.applyDown(ctx, m)
	}
	return fmt.Errorf("applied migration %s has no matching script file", latest)
}

func (db *DB) ensureVersionTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	return nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (db *DB) applyUp(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES (?)`, m.version,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) applyDown(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.down); err != nil {
		return fmt.Errorf("reverting migration %s: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_migrations WHERE version = ?`, m.version,
	); err != nil {
		return fmt.Errorf("removing migration record %s: %w", m.version, err)
	}
	return tx.Commit()
}

// loadMigrations reads every .up.sql/.down.sql pair from MigrationsFS and
// returns them sorted by version.
func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[string]*migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var down bool
		switch {
		case strings.HasSuffix(name, ".up.sql"):
		case strings.HasSuffix(name, ".down.sql"):
			down = true
		default:
			continue
		}

		version, label, ok := splitMigrationName(name)
		if !ok {
			return nil, fmt.Errorf("migration %s: want date_sequence_name.up.sql", name)
		}

		body, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version}
			byVersion[version] = m
		}
		if down {
			m.down = string(body)
		} else {
			m.up = string(body)
			m.label = label
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" {
			return nil, fmt.Errorf("migration %s has a down script but no up script", m.version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// splitMigrationName splits "20260801_000001_create_session.up.sql" into
// version "20260801_000001" and label "create_session".
func splitMigrationName(filename string) (version, label string, ok bool) {
	base := strings.TrimSuffix(filename, ".up.sql")
	base = strings.TrimSuffix(base, ".down.sql")

	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0] + "_" + parts[1], parts[2], true
}
