// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core is the boundary used by the CLI and TUI. Manager wires the
// key store, generator, catalog, config synchronizer and security gate
// together and serializes access through the store lock.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/toeirei/keyring/internal/keygen"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/security"
	"github.com/toeirei/keyring/internal/sshconfig"
)

// DefaultLockTimeout bounds how long an operation waits for the store lock.
const DefaultLockTimeout = 30 * time.Second

// ErrAuditDisabled is returned by AuditLog when no audit store is attached.
var ErrAuditDisabled = errors.New("audit log is disabled")

// AuditReader lists recorded operations, most recent first.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]security.Operation, error)
}

// Options configures a Manager. Zero values select the defaults: the native
// backend, an inert gate, no audit reader.
type Options struct {
	Backend     keygen.Backend
	Gate        security.Gate
	Audit       AuditReader
	LockTimeout time.Duration
}

// Manager implements the key management operations.
type Manager struct {
	store       *keystore.Store
	config      *sshconfig.Synchronizer
	gen         *keygen.Generator
	gate        security.Gate
	audit       AuditReader
	lockTimeout time.Duration
}

// NewManager returns a Manager for store.
func NewManager(store *keystore.Store, opts Options) *Manager {
	if opts.Backend == nil {
		opts.Backend = keygen.Native{}
	}
	if opts.Gate == nil {
		opts.Gate = security.NewGate()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	cfg := sshconfig.New(store.ConfigPath())
	return &Manager{
		store:       store,
		config:      cfg,
		gen:         keygen.New(store, opts.Backend, cfg),
		gate:        opts.Gate,
		audit:       opts.Audit,
		lockTimeout: opts.LockTimeout,
	}
}

// Store returns the underlying key store.
func (m *Manager) Store() *keystore.Store { return m.store }

// Gate returns the security gate in use.
func (m *Manager) Gate() security.Gate { return m.gate }

func (m *Manager) lock(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()
	return m.store.Lock(ctx)
}

func (m *Manager) rlock(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()
	return m.store.RLock(ctx)
}

// record writes an audit entry for a finished operation. Audit failures are
// logged and never change the operation's result.
func (m *Manager) record(ctx context.Context, action, subject, details string, opErr error) {
	op := security.Operation{Action: action, Subject: subject, Details: details, Outcome: security.OutcomeOK}
	if opErr != nil {
		op.Outcome = security.OutcomeError
		if op.Details == "" {
			op.Details = opErr.Error()
		}
	}
	// The caller's context may already be cancelled; the entry is still due.
	if err := m.gate.LogOperation(context.WithoutCancel(ctx), op); err != nil {
		logging.L.Warn("audit log write failed", "action", action, "subject", subject, "err", err)
	}
}
