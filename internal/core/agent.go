// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"time"

	keyagent "github.com/toeirei/keyring/internal/agent"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/security"
	"golang.org/x/crypto/ssh/agent"
)

// AddToAgent loads the named private key into a. A positive lifetime limits
// how long the agent keeps it.
func (m *Manager) AddToAgent(ctx context.Context, a agent.Agent, name string, lifetime time.Duration) error {
	if err := keystore.CheckName(name); err != nil {
		return err
	}
	unlock, err := m.rlock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	priv, err := m.store.ReadPrivate(name)
	if err == nil {
		err = keyagent.AddKey(a, priv, name, lifetime)
		priv.Zero()
	}
	m.record(ctx, security.OpAgentAdd, name, fmt.Sprintf("lifetime: %s", lifetime), err)
	return err
}

// AuditLog returns up to limit recorded operations, most recent first.
func (m *Manager) AuditLog(ctx context.Context, limit int) ([]security.Operation, error) {
	if m.audit == nil {
		return nil, ErrAuditDisabled
	}
	return m.audit.List(ctx, limit)
}
