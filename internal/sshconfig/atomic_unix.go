//go:build !windows

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package sshconfig

func chmodUnsupported(error) bool { return false }
