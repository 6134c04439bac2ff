// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the records shared across Keyring and the error
// taxonomy every component wraps its failures in. Records here are derived
// from files on disk; nothing in this package performs I/O.
package model
