// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the durable backing location for the credential
// store. It persists one named blob per key entry in a relational database
// (SQLite, PostgreSQL or MySQL) behind a Bun adapter, so the rest of the
// application never touches *sql.DB directly. The backing area is created
// lazily: opening the DSN creates the SQLite file and the embedded
// migrations create the schema on first use.
package db // import "github.com/toeirei/keychest/internal/db"

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/toeirei/keychest/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	// SQL drivers required for integration tests and runtime.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	//go:embed migrations
	embeddedMigrations embed.FS
	// sqlOpenFunc allows tests to override database opening behavior.
	sqlOpenFunc = sql.Open
)

// Backing is the database-backed blob area used by the credential store.
// One instance is composed per process and handed to the store constructor.
type Backing struct {
	dbType string
	bun    *bun.DB
}

// New opens the database for the given type and DSN, runs pending
// migrations and returns a ready Backing.
func New(dbType, dsn string) (*Backing, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == "postgres" {
		driverName = "pgx"
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Conservative pool defaults for a local single-host tool; overridable
	// via environment for CI tuning.
	const (
		defaultMaxOpenConns    = 10
		defaultMaxIdleConns    = 10
		defaultConnMaxLifetime = 5 * time.Minute
	)
	maxOpen := envInt("KEYCHEST_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("KEYCHEST_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)

	// In-memory SQLite keeps a separate database per connection; force a
	// single connection so the schema stays visible. Tests rely on this.
	if dbType == "sqlite" && (strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")) {
		maxOpen = 1
		maxIdle = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	dbLogf("db: opened %s driver in %s (conn max open=%d, idle=%d)", driverName, time.Since(start), maxOpen, maxIdle)

	migStart := time.Now()
	if err := RunMigrations(sqlDB, dbType); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("db: migrations for %s completed in %s", dbType, time.Since(migStart))

	return &Backing{dbType: dbType, bun: createBunDB(sqlDB, dbType)}, nil
}

// envInt reads a non-negative integer from the environment, falling back to
// def when unset or malformed.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
// Centralizing construction keeps dialect selection in one place.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// Close releases the underlying database handle.
func (b *Backing) Close() error {
	return b.bun.Close()
}

// ReadAllKeys loads every persisted key entry. The credential store calls
// this once at construction to build its in-memory index.
func (b *Backing) ReadAllKeys(ctx context.Context) ([]model.KeyEntry, error) {
	return GetAllKeysBun(ctx, b.bun)
}

// WriteKey persists the entry under its name, atomically replacing any
// existing blob with that name, and returns the stored entry with its
// assigned ID and timestamp.
func (b *Backing) WriteKey(ctx context.Context, entry model.KeyEntry) (model.KeyEntry, error) {
	stored, err := PutKeyBun(ctx, b.bun, entry)
	if err == nil {
		_ = LogActionBun(ctx, b.bun, "ADD_KEY", fmt.Sprintf("name: %s, algorithm: %s", stored.Name, stored.Algorithm))
	}
	return stored, err
}

// DeleteKey removes the named blob. Deleting an absent name is not an error.
func (b *Backing) DeleteKey(ctx context.Context, name string) error {
	err := DeleteKeyBun(ctx, b.bun, name)
	if err == nil {
		_ = LogActionBun(ctx, b.bun, "DELETE_KEY", fmt.Sprintf("name: %s", name))
	}
	return err
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func (b *Backing) GetAllAuditLogEntries(ctx context.Context) ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(ctx, b.bun)
}

// LogAction records an audit trail event.
func (b *Backing) LogAction(ctx context.Context, action, details string) error {
	return LogActionBun(ctx, b.bun, action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
func (b *Backing) ExportDataForBackup(ctx context.Context) (*model.BackupData, error) {
	return ExportDataForBackupBun(ctx, b.bun)
}

// ImportDataFromBackup restores the database from a backup data structure.
// It performs a full wipe-and-replace within a single transaction.
func (b *Backing) ImportDataFromBackup(ctx context.Context, backup *model.BackupData) error {
	return ImportDataFromBackupBun(ctx, b.bun, backup)
}

// IntegrateDataFromBackup restores data from a backup in a non-destructive
// way, skipping entries whose names already exist.
func (b *Backing) IntegrateDataFromBackup(ctx context.Context, backup *model.BackupData) error {
	return IntegrateDataFromBackupBun(ctx, b.bun, backup)
}

// RunMigrations applies the embedded migrations for a given database connection.
func RunMigrations(db *sql.DB, dbType string) error {
	migrationsPath := fmt.Sprintf("migrations/%s", dbType)

	entries, err := fs.ReadDir(embeddedMigrations, migrationsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// No migrations embedded for this DB type.
			return nil
		}
		return fmt.Errorf("failed to read embedded migrations (%s): %w", migrationsPath, err)
	}

	// Collect .up.sql files and sort them.
	var ups []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	if err := ensureSchemaMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	for _, fname := range ups {
		version := strings.TrimSuffix(fname, ".up.sql")

		var exists int
		query := "SELECT 1 FROM schema_migrations WHERE version = ?"
		if dbType == "postgres" {
			query = "SELECT 1 FROM schema_migrations WHERE version = $1"
		}
		err := db.QueryRow(query, version).Scan(&exists)
		if err == nil {
			continue // already applied
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check migration version %s: %w", version, err)
		}

		data, err := embeddedMigrations.ReadFile(path.Join(migrationsPath, fname))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", fname, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", version, err)
		}
		if _, err := tx.Exec(string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", version, err)
		}

		insertQuery := "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)"
		if dbType == "postgres" {
			insertQuery = "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)"
		}
		if _, err := tx.Exec(insertQuery, version, time.Now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to commit migration %s: %w", version, err)
		}
	}

	return nil
}

// ensureSchemaMigrationsTable creates the migration bookkeeping table if missing.
func ensureSchemaMigrationsTable(db *sql.DB, dbType string) error {
	// MySQL does not permit TEXT columns as primary keys without a length,
	// so use a VARCHAR with a safe length there.
	if dbType == "mysql" {
		_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(191) PRIMARY KEY, applied_at TIMESTAMP)`)
		return err
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`)
	return err
}
