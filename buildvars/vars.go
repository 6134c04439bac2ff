// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars holds values injected with
// `-ldflags "-X github.com/toeirei/keyring/buildvars.Version=... -X ...Commit=..."`.
// Both are empty in development builds.
package buildvars

var (
	Version string
	Commit  string
)

// VersionOrDefault returns Version, or def when it was not set.
func VersionOrDefault(def string) string {
	return orDefault(Version, def)
}

// CommitOrDefault returns Commit, or def when it was not set.
func CommitOrDefault(def string) string {
	return orDefault(Commit, def)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
