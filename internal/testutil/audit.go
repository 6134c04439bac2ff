// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"context"
	"sync"

	"github.com/toeirei/keyring/internal/security"
)

// FakeAuditSink collects operations in memory. Err, when set, is returned
// from every Record call after the operation has been stored.
type FakeAuditSink struct {
	mu  sync.Mutex
	ops []security.Operation
	Err error
}

func (f *FakeAuditSink) Record(_ context.Context, op security.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	return f.Err
}

// Operations returns a copy of the recorded operations.
func (f *FakeAuditSink) Operations() []security.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]security.Operation(nil), f.ops...)
}

// Actions returns the Action field of every recorded operation in order.
func (f *FakeAuditSink) Actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	for i, op := range f.ops {
		out[i] = op.Action
	}
	return out
}
