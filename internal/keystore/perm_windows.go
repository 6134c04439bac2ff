//go:build windows

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"io/fs"
	"os"
)

// PermissionsEnforced reports whether file modes are applied on this platform.
// Windows has no POSIX permission bits; the mode step is skipped.
const PermissionsEnforced = false

func setMode(_ *os.File, _ fs.FileMode) error {
	return nil
}
