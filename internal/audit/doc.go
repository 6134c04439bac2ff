// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package audit persists the operation log written through the security
// gate. It is backed by bun over SQLite (default), PostgreSQL or MySQL and
// applies its own embedded schema migrations on open.
package audit // import "github.com/toeirei/keyring/internal/audit"
