// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshconfig keeps the SSH client config file in step with the key
// store. Each managed key owns one block:
//
//	Host *
//	  IdentityFile <absolute-path-to-private-key>
//
// Entries are matched by the exact IdentityFile value of a parsed block,
// never by substring, so a key whose path is a prefix of another key's path
// cannot remove the other key's entry. Lines the package does not own are
// written back byte for byte.
package sshconfig
