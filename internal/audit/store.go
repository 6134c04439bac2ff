// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Supported database types.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
)

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int64     `bun:"id,pk,autoincrement"`
	OpID          string    `bun:"op_id,notnull"`
	Timestamp     time.Time `bun:"timestamp,notnull"`
	Username      string    `bun:"username"`
	Action        string    `bun:"action,notnull"`
	Subject       string    `bun:"subject"`
	Outcome       string    `bun:"outcome"`
	Details       string    `bun:"details"`
}

func (m AuditLogModel) operation() security.Operation {
	return security.Operation{
		ID:        m.OpID,
		Timestamp: m.Timestamp.UTC(),
		Username:  m.Username,
		Action:    m.Action,
		Subject:   m.Subject,
		Outcome:   m.Outcome,
		Details:   m.Details,
	}
}

// Store is the bun-backed audit log. It implements security.AuditSink.
type Store struct {
	db     *bun.DB
	dbType string
}

var _ security.AuditSink = (*Store)(nil)

// Open connects to the database, configures the pool and applies pending
// migrations.
func Open(ctx context.Context, dbType, dsn string) (*Store, error) {
	dbType = strings.ToLower(strings.TrimSpace(dbType))
	driverName := dbType
	switch dbType {
	case TypeSQLite:
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, fmt.Errorf("%w: create audit database directory: %w", model.ErrStorage, err)
		}
	case TypePostgres:
		// The pgx stdlib registers driver name "pgx".
		driverName = "pgx"
	case TypeMySQL:
	default:
		return nil, fmt.Errorf("%w: unsupported database type %q", model.ErrValidation, dbType)
	}

	start := time.Now()
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open audit database: %w", model.ErrStorage, err)
	}
	configurePool(sqlDB, dbType, dsn)
	dbLogf("opened %s driver in %s", driverName, time.Since(start))

	bdb := createBunDB(sqlDB, dbType)
	if err := runMigrations(ctx, bdb, dbType); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("%w: audit migrations: %w", model.ErrStorage, err)
	}
	return &Store{db: bdb, dbType: dbType}, nil
}

func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case TypePostgres:
		return bun.NewDB(sqlDB, pgdialect.New())
	case TypeMySQL:
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

func configurePool(sqlDB *sql.DB, dbType, dsn string) {
	const (
		defaultMaxOpenConns    = 4
		defaultConnMaxLifetime = 5 * time.Minute
	)
	maxOpen := defaultMaxOpenConns
	// In-memory SQLite is per connection; keep a single one so the schema
	// stays visible.
	if dbType == TypeSQLite && isMemoryDSN(dsn) {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

func ensureSQLiteDir(dsn string) error {
	if dsn == "" || isMemoryDSN(dsn) || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(dsn), 0o700)
}

// Type returns the database type the store was opened with.
func (s *Store) Type() string { return s.dbType }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts op. The gate fills in ID, timestamp and user beforehand.
func (s *Store) Record(ctx context.Context, op security.Operation) error {
	ts := op.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := &AuditLogModel{
		OpID:      op.ID,
		Timestamp: ts.UTC(),
		Username:  op.Username,
		Action:    op.Action,
		Subject:   op.Subject,
		Outcome:   op.Outcome,
		Details:   op.Details,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert audit entry: %w", model.ErrStorage, MapDBError(err))
	}
	return nil
}

// List returns up to limit entries, most recent first. A limit of zero or
// less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]security.Operation, error) {
	var rows []AuditLogModel
	q := s.db.NewSelect().Model(&rows).OrderExpr("timestamp DESC").OrderExpr("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: read audit log: %w", model.ErrStorage, err)
	}
	out := make([]security.Operation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.operation())
	}
	return out, nil
}
