// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keygen validates generation requests, produces key material via a
// pluggable Backend and stores the result together with its SSH config
// entry. Keys are always created without a passphrase.
package keygen
