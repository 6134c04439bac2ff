// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

const (
	privateKeyMode fs.FileMode = 0o600
	publicKeyMode  fs.FileMode = 0o644
	rootDirMode    fs.FileMode = 0o700

	// ConfigFileName is the SSH client config file kept in the store root.
	ConfigFileName = "config"
	lockFileName   = ".keyring.lock"
)

// Store is a flat directory of key pairs.
type Store struct {
	root string
}

// New returns a Store rooted at root. The root is made absolute but not
// created; call EnsureRoot before writing.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: key store root is empty", model.ErrValidation)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve key store root %q: %w", model.ErrStorage, root, err)
	}
	return &Store{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

// PrivatePath returns the absolute path of name's private key file.
func (s *Store) PrivatePath(name string) string { return filepath.Join(s.root, name) }

// PublicPath returns the absolute path of name's public key file.
func (s *Store) PublicPath(name string) string {
	return filepath.Join(s.root, name+model.PublicKeySuffix)
}

// ConfigPath returns the absolute path of the SSH config file in the root.
func (s *Store) ConfigPath() string { return filepath.Join(s.root, ConfigFileName) }

// EnsureRoot creates the root directory if it is absent.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, rootDirMode); err != nil {
		return fmt.Errorf("%w: create key store %s: %w", model.ErrStorage, s.root, err)
	}
	return nil
}

// Exists reports whether either file of name's pair is present.
func (s *Store) Exists(name string) (bool, error) {
	if err := CheckName(name); err != nil {
		return false, err
	}
	for _, p := range []string{s.PrivatePath(name), s.PublicPath(name)} {
		_, err := os.Lstat(p)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: stat %s: %w", model.ErrStorage, p, err)
		}
	}
	return false, nil
}

// WritePair writes the private file, locks down its mode, then writes the
// public file. Existing files are never overwritten. If the public file
// cannot be written the freshly created private file is removed again.
func (s *Store) WritePair(name string, private security.Secret, public []byte) error {
	if err := CheckName(name); err != nil {
		return err
	}
	privPath, pubPath := s.PrivatePath(name), s.PublicPath(name)

	if _, err := os.Lstat(pubPath); err == nil {
		return fmt.Errorf("%w: %s", model.ErrAlreadyExists, pubPath)
	}
	if err := writeExclusive(privPath, private, privateKeyMode); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", model.ErrAlreadyExists, privPath)
		}
		return fmt.Errorf("%w: write private key %s: %w", model.ErrStorage, privPath, err)
	}
	if err := writeExclusive(pubPath, public, publicKeyMode); err != nil {
		_ = os.Remove(privPath)
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", model.ErrAlreadyExists, pubPath)
		}
		return fmt.Errorf("%w: write public key %s: %w", model.ErrStorage, pubPath, err)
	}
	return nil
}

// writeExclusive creates path, applies mode before any content is written,
// then writes and syncs data.
func writeExclusive(path string, data []byte, mode fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := setMode(f, mode); err != nil {
		return fail(fmt.Errorf("set permissions: %w", err))
	}
	if _, err := f.Write(data); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// DeletePair removes both files of name's pair. Missing files are not an
// error. It reports whether anything was removed.
func (s *Store) DeletePair(name string) (bool, error) {
	if err := CheckName(name); err != nil {
		return false, err
	}
	removed := false
	for _, p := range []string{s.PrivatePath(name), s.PublicPath(name)} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, fmt.Errorf("%w: remove %s: %w", model.ErrStorage, p, err)
		}
	}
	return removed, nil
}

// ListPublicFiles returns the paths of all non-directory entries in the root
// carrying the public key suffix. A missing root yields an empty result.
func (s *Store) ListPublicFiles() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read key store %s: %w", model.ErrStorage, s.root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), model.PublicKeySuffix) {
			continue
		}
		out = append(out, filepath.Join(s.root, e.Name()))
	}
	return out, nil
}

// ReadPublic returns the content of name's public key file.
func (s *Store) ReadPublic(name string) ([]byte, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.PublicPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: public key %q", model.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: read public key %q: %w", model.ErrStorage, name, err)
	}
	return data, nil
}

// ReadPrivate returns the content of name's private key file.
func (s *Store) ReadPrivate(name string) (security.Secret, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.PrivatePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: private key %q", model.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: read private key %q: %w", model.ErrStorage, name, err)
	}
	return security.Secret(data), nil
}

// PrivateInfo stats name's private key file.
func (s *Store) PrivateInfo(name string) (fs.FileInfo, error) {
	if err := CheckName(name); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.PrivatePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: private key %q", model.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: stat private key %q: %w", model.ErrStorage, name, err)
	}
	return info, nil
}

// CheckName reports whether name addresses a pair directly inside the root.
// It is the only rule for keys that already exist; generation applies the
// stricter keygen.ValidateName on top. The store's own config and lock
// files are never key names.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator) ||
		strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: invalid key name %q", model.ErrValidation, name)
	}
	if name == ConfigFileName || name == lockFileName {
		return fmt.Errorf("%w: %q is not a key", model.ErrValidation, name)
	}
	return nil
}
