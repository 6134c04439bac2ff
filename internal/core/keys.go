// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/toeirei/keyring/internal/catalog"
	"github.com/toeirei/keyring/internal/keygen"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

// KeyView is the listing record handed to user interfaces.
type KeyView struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	LastUsed    string `json:"last_used"`
	KeyType     string `json:"key_type"`
	Comment     string `json:"comment,omitempty"`
}

func viewOf(e model.KeyEntry) KeyView {
	return KeyView{
		Name:        e.Name,
		Fingerprint: e.Fingerprint,
		LastUsed:    e.LastUsed.UTC().Format(time.RFC3339),
		KeyType:     e.KeyType,
		Comment:     e.Comment,
	}
}

// ListKeys returns every complete key pair in the store, sorted by name.
func (m *Manager) ListKeys(ctx context.Context) ([]KeyView, error) {
	unlock, err := m.rlock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := catalog.List(m.store)
	if err != nil {
		return nil, err
	}
	out := make([]KeyView, 0, len(entries))
	for _, e := range entries {
		out = append(out, viewOf(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GenerateKey creates a key pair named name and registers it in the SSH
// config. email, when set, is used as the key comment instead of comment.
func (m *Manager) GenerateKey(ctx context.Context, name, keyType, comment, email string) error {
	req := model.GenerateRequest{Name: name, KeyType: keyType, Comment: comment, Email: email}
	// Reject bad input before touching the lock or the disk.
	if err := keygen.ValidateName(name); err != nil {
		return err
	}
	if _, err := keygen.NormalizeKeyType(keyType); err != nil {
		return err
	}

	unlock, err := m.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	err = m.gen.Generate(ctx, req)
	m.record(ctx, security.OpGenerateKey, name, fmt.Sprintf("type: %s", strings.ToLower(keyType)), err)
	return err
}

// DeleteKey removes both files of the pair and its config entry. It fails
// with ErrNotFound only when neither files nor an entry existed.
func (m *Manager) DeleteKey(ctx context.Context, name string) error {
	if err := keystore.CheckName(name); err != nil {
		return err
	}
	unlock, err := m.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	err = m.deleteLocked(name)
	m.record(ctx, security.OpDeleteKey, name, "", err)
	return err
}

func (m *Manager) deleteLocked(name string) error {
	removed, err := m.store.DeletePair(name)
	if err != nil {
		return err
	}
	changed, err := m.config.RemoveEntry(m.store.PrivatePath(name))
	if err != nil {
		if removed {
			logging.Warnf("key %q was deleted but its SSH config entry was not removed: %v", name, err)
		}
		return err
	}
	if !removed && !changed {
		return fmt.Errorf("%w: key %q", model.ErrNotFound, name)
	}
	logging.Infof("deleted key %q", name)
	return nil
}

// GetPublicKey returns the content of the key's public file without the
// trailing line break.
func (m *Manager) GetPublicKey(ctx context.Context, name string) (string, error) {
	if err := keystore.CheckName(name); err != nil {
		return "", err
	}
	unlock, err := m.rlock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	data, err := m.store.ReadPublic(name)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
