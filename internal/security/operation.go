// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"context"
	"os/user"
	"strings"
	"time"
)

// Operation names recorded in the audit trail.
const (
	OpGenerateKey = "GENERATE_KEY"
	OpDeleteKey   = "DELETE_KEY"
	OpSyncConfig  = "SYNC_CONFIG"
	OpBackup      = "BACKUP"
	OpRestore     = "RESTORE"
	OpAgentAdd    = "AGENT_ADD"
)

// Outcomes recorded with an Operation.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Operation is one audited action.
type Operation struct {
	ID        string
	Timestamp time.Time
	Username  string
	Action    string
	Subject   string
	Outcome   string
	Details   string
}

// AuditSink persists operations. Implementations must be append-only.
type AuditSink interface {
	Record(ctx context.Context, op Operation) error
}

// currentUsername returns the OS user name, stripping a Windows domain prefix.
func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if parts := strings.Split(u.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return u.Username
}
