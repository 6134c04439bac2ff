// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toeirei/keyring/internal/backup"
	"github.com/toeirei/keyring/internal/catalog"
	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/keygen"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/security"
)

// RestoreReport lists the keys a restore wrote and the ones it left alone.
type RestoreReport struct {
	Restored []string          `json:"restored"`
	Skipped  map[string]string `json:"skipped,omitempty"` // name -> reason
}

// Backup writes every complete key pair to w. The archive is encrypted
// through the gate; allowPlaintext must be set when the gate cannot encrypt.
func (m *Manager) Backup(ctx context.Context, w io.Writer, allowPlaintext bool) (int, error) {
	unlock, err := m.rlock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	pairs, err := m.collectPairs()
	defer func() {
		for i := range pairs {
			pairs[i].Private.Zero()
		}
	}()
	if err == nil {
		err = backup.Write(w, pairs, m.gate, allowPlaintext)
	}
	m.record(ctx, security.OpBackup, m.store.Root(), fmt.Sprintf("keys: %d, encrypted: %t", len(pairs), m.gate.Encrypts()), err)
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

func (m *Manager) collectPairs() ([]backup.Pair, error) {
	entries, err := catalog.List(m.store)
	if err != nil {
		return nil, err
	}
	pairs := make([]backup.Pair, 0, len(entries))
	for _, e := range entries {
		priv, err := m.store.ReadPrivate(e.Name)
		if err != nil {
			return pairs, err
		}
		pub, err := m.store.ReadPublic(e.Name)
		if err != nil {
			priv.Zero()
			return pairs, err
		}
		pairs = append(pairs, backup.Pair{Name: e.Name, Private: priv, Public: pub, ModTime: e.LastUsed})
	}
	return pairs, nil
}

// Restore writes the pairs of an archive into the store and registers them
// in the SSH config. Existing keys are never overwritten.
func (m *Manager) Restore(ctx context.Context, r io.Reader) (RestoreReport, error) {
	pairs, err := backup.Read(r, m.gate)
	if err != nil {
		return RestoreReport{}, err
	}
	defer func() {
		for i := range pairs {
			pairs[i].Private.Zero()
		}
	}()

	unlock, err := m.lock(ctx)
	if err != nil {
		return RestoreReport{}, err
	}
	defer unlock()

	report, err := m.restoreLocked(pairs)
	m.record(ctx, security.OpRestore, m.store.Root(),
		fmt.Sprintf("restored: %s", strings.Join(report.Restored, ",")), err)
	return report, err
}

func (m *Manager) restoreLocked(pairs []backup.Pair) (RestoreReport, error) {
	report := RestoreReport{Skipped: map[string]string{}}
	if err := m.store.EnsureRoot(); err != nil {
		return report, err
	}
	for _, p := range pairs {
		if err := keygen.ValidateName(p.Name); err != nil {
			report.Skipped[p.Name] = err.Error()
			continue
		}
		exists, err := m.store.Exists(p.Name)
		if err != nil {
			return report, err
		}
		if exists {
			report.Skipped[p.Name] = "already exists"
			continue
		}
		if _, err := cryptossh.ParsePublicKeyFile(p.Public); err != nil {
			report.Skipped[p.Name] = err.Error()
			continue
		}
		if err := m.store.WritePair(p.Name, p.Private, p.Public); err != nil {
			return report, err
		}
		if !p.ModTime.IsZero() {
			if err := os.Chtimes(m.store.PrivatePath(p.Name), p.ModTime, p.ModTime); err != nil {
				logging.L.Debug("could not restore modification time", "key", p.Name, "err", err)
			}
		}
		report.Restored = append(report.Restored, p.Name)
		if _, err := m.config.AddEntry(m.store.PrivatePath(p.Name)); err != nil {
			return report, err
		}
	}
	return report, nil
}
