// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

//go:embed migrations
var embeddedMigrations embed.FS

// schemaMigration records one applied migration.
type schemaMigration struct {
	bun.BaseModel `bun:"table:schema_migrations"`
	Version       string    `bun:"version,pk"`
	AppliedAt     time.Time `bun:"applied_at,notnull"`
}

// runMigrations applies every embedded *.up.sql file for dbType that is not
// yet recorded in schema_migrations, each in its own transaction.
func runMigrations(ctx context.Context, db *bun.DB, dbType string) error {
	start := time.Now()
	dir := path.Join("migrations", dbType)
	entries, err := fs.ReadDir(embeddedMigrations, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read embedded migrations (%s): %w", dir, err)
	}
	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	if _, err := db.NewCreateTable().Model((*schemaMigration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, name := range ups {
		version := strings.TrimSuffix(name, ".up.sql")
		applied, err := db.NewSelect().Model((*schemaMigration)(nil)).Where("version = ?", version).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			continue
		}
		data, err := embeddedMigrations.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range splitStatements(string(data)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.NewInsert().Model(&schemaMigration{Version: version, AppliedAt: time.Now().UTC()}).Exec(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
	}
	dbLogf("migrations for %s completed in %s", dbType, time.Since(start))
	return nil
}

// splitStatements splits a migration file on statement terminators. The
// files contain no semicolons inside literals.
func splitStatements(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
