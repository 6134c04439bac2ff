// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/toeirei/keyring/internal/catalog"
	"github.com/toeirei/keyring/internal/security"
)

// SyncReport describes what SyncConfig changed, or would change on a dry
// run. Entries are private key paths.
type SyncReport struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	DryRun  bool     `json:"dry_run"`
}

// Changed reports whether the config was (or would be) modified.
func (r SyncReport) Changed() bool { return len(r.Added)+len(r.Removed) > 0 }

// SyncConfig adds missing entries for every listed key and removes entries
// under the store root whose private key no longer exists.
func (m *Manager) SyncConfig(ctx context.Context, dryRun bool) (SyncReport, error) {
	lock := m.lock
	if dryRun {
		lock = m.rlock
	}
	unlock, err := lock(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	defer unlock()

	report, err := m.syncLocked(dryRun)
	if !dryRun {
		m.record(ctx, security.OpSyncConfig, m.config.Path(),
			fmt.Sprintf("added: %d, removed: %d", len(report.Added), len(report.Removed)), err)
	}
	return report, err
}

func (m *Manager) syncLocked(dryRun bool) (SyncReport, error) {
	report := SyncReport{DryRun: dryRun}
	entries, err := catalog.List(m.store)
	if err != nil {
		return report, err
	}
	for _, e := range entries {
		path := m.store.PrivatePath(e.Name)
		has, err := m.config.HasEntry(path)
		if err != nil {
			return report, err
		}
		if has {
			continue
		}
		if !dryRun {
			if _, err := m.config.AddEntry(path); err != nil {
				return report, err
			}
		}
		report.Added = append(report.Added, path)
	}

	managed, err := m.config.ManagedPaths(m.store.Root())
	if err != nil {
		return report, err
	}
	for _, path := range managed {
		if strings.HasSuffix(filepath.Base(path), ".pub") {
			continue
		}
		if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if !dryRun {
			if _, err := m.config.RemoveEntry(path); err != nil {
				return report, err
			}
		}
		report.Removed = append(report.Removed, path)
	}
	return report, nil
}
