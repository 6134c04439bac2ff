// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package security holds the Security Gate: the single point every mutating
// key operation passes through for audit logging, and the at-rest encryption
// used for key backups. It also provides Secret, a redacting wrapper for
// private key material.
package security
