// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package sshconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
)

const configMode fs.FileMode = 0o600

// Synchronizer edits a single SSH client config file. It does no locking of
// its own; callers serialize access through the key store lock.
type Synchronizer struct {
	path string
}

// New returns a Synchronizer for the config file at path.
func New(path string) *Synchronizer {
	return &Synchronizer{path: path}
}

// Path returns the config file path.
func (s *Synchronizer) Path() string { return s.path }

// load reads and parses the config. A missing file parses as empty and
// exists is false.
func (s *Synchronizer) load() (f *File, exists bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Parse(nil), false, nil
		}
		return nil, false, fmt.Errorf("%w: read %s: %w", model.ErrConfigSync, s.path, err)
	}
	return Parse(data), true, nil
}

// HasEntry reports whether the config already carries an entry for
// identityPath.
func (s *Synchronizer) HasEntry(identityPath string) (bool, error) {
	f, _, err := s.load()
	if err != nil {
		return false, err
	}
	return f.HasEntry(identityPath), nil
}

// AddEntry appends a "Host *" block for identityPath unless one is already
// present. A file without a final newline stays without one, so a later
// RemoveEntry restores it byte for byte. It reports whether the file was
// written.
func (s *Synchronizer) AddEntry(identityPath string) (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%w: read %s: %w", model.ErrConfigSync, s.path, err)
	}
	if Parse(data).HasEntry(identityPath) {
		logging.Debugf("config entry for %s already present", identityPath)
		return false, nil
	}
	entry := entryBlock(identityPath)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		// The leading newline ends the last line; keep the file unterminated.
		entry = strings.TrimSuffix(entry, "\n")
	}
	out := append(data[:len(data):len(data)], entry...)
	if err := s.write(out); err != nil {
		return false, err
	}
	logging.Debugf("added config entry for %s", identityPath)
	return true, nil
}

// RemoveEntry removes every entry for identityPath. A missing config or an
// absent entry leaves the file untouched. It reports whether the file was
// written.
func (s *Synchronizer) RemoveEntry(identityPath string) (bool, error) {
	f, exists, err := s.load()
	if err != nil || !exists {
		return false, err
	}
	if !f.RemoveEntry(identityPath) {
		return false, nil
	}
	if err := s.write(f.Bytes()); err != nil {
		return false, err
	}
	logging.Debugf("removed config entry for %s", identityPath)
	return true, nil
}

// ManagedPaths returns the sorted, de-duplicated IdentityFile values of
// "Host *" blocks that point directly into root.
func (s *Synchronizer) ManagedPaths(root string) ([]string, error) {
	f, _, err := s.load()
	if err != nil {
		return nil, err
	}
	root = filepath.Clean(root)
	seen := map[string]bool{}
	var out []string
	for _, p := range f.IdentityFiles() {
		if !filepath.IsAbs(p) || filepath.Dir(filepath.Clean(p)) != root || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Synchronizer) write(data []byte) error {
	target, err := resolveTarget(s.path)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %w", model.ErrConfigSync, s.path, err)
	}
	if err := writeFileAtomic(target, data, configMode); err != nil {
		return fmt.Errorf("%w: write %s: %w", model.ErrConfigSync, target, err)
	}
	return nil
}

// resolveTarget follows a symlinked config so the link itself survives the
// rename. A missing file resolves to itself.
func resolveTarget(path string) (string, error) {
	target, err := filepath.EvalSymlinks(path)
	if err == nil {
		return target, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		if fi, lerr := os.Lstat(path); lerr == nil && fi.Mode()&fs.ModeSymlink != 0 {
			// Dangling link: write to where it points.
			dest, rerr := os.Readlink(path)
			if rerr != nil {
				return "", rerr
			}
			if !filepath.IsAbs(dest) {
				dest = filepath.Join(filepath.Dir(path), dest)
			}
			return dest, nil
		}
		return path, nil
	}
	return "", err
}
