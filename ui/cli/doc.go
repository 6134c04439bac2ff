// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cli implements the keyring command line using Cobra. It loads the
// configuration, wires the key store, generator backend, security gate and
// audit store into a core.Manager, and keeps every command a thin call into
// that manager.
package cli
