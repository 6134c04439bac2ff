//go:build windows

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package sshconfig

// File modes are not enforced on Windows; ACLs are left as inherited.
func chmodUnsupported(error) bool { return true }
