// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keystore owns the directory holding managed key pairs: file
// existence, permissions and the per-store lock that serializes mutations of
// the key files and the shared SSH config file.
//
// A pair is two files, <name> (mode 0600) and <name>.pub (mode 0644). On
// Windows the permission step is a no-op; NTFS ACLs are left to the user.
package keystore
