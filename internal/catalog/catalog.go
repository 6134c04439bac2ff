// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package catalog lists the key pairs present in a key store. Nothing is
// cached: every call reads the directory again.
package catalog

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
)

// MaxPublicKeySize is the largest public key file the catalog will read.
const MaxPublicKeySize = 64 << 10

// Source is the part of the key store the catalog reads.
type Source interface {
	ListPublicFiles() ([]string, error)
}

// List returns one entry per complete key pair found through src, in
// directory order. Files that are not part of a valid pair are skipped.
func List(src Source) ([]model.KeyEntry, error) {
	paths, err := src.ListPublicFiles()
	if err != nil {
		return nil, err
	}
	entries := make([]model.KeyEntry, 0, len(paths))
	for _, pubPath := range paths {
		entry, reason := inspect(pubPath)
		if reason != "" {
			logging.Debugf("skipping %s: %s", filepath.Base(pubPath), reason)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// inspect builds the entry for one public key file or returns why it does
// not describe a managed key.
func inspect(pubPath string) (model.KeyEntry, string) {
	pubInfo, err := os.Stat(pubPath)
	if err != nil {
		return model.KeyEntry{}, err.Error()
	}
	if !pubInfo.Mode().IsRegular() {
		return model.KeyEntry{}, "not a regular file"
	}
	if pubInfo.Size() > MaxPublicKeySize {
		return model.KeyEntry{}, "file too large"
	}

	privPath := strings.TrimSuffix(pubPath, model.PublicKeySuffix)
	privInfo, err := os.Stat(privPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.KeyEntry{}, "no private key"
		}
		return model.KeyEntry{}, err.Error()
	}
	if !privInfo.Mode().IsRegular() {
		return model.KeyEntry{}, "private key is not a regular file"
	}

	data, err := os.ReadFile(pubPath)
	if err != nil {
		return model.KeyEntry{}, err.Error()
	}
	info, err := cryptossh.ParsePublicKeyFile(data)
	if err != nil {
		return model.KeyEntry{}, "unparsable public key"
	}
	return model.KeyEntry{
		Name:        filepath.Base(privPath),
		KeyType:     model.NormalizeKeyType(info.Key.Type()),
		Fingerprint: cryptossh.FingerprintSHA256(info.Key),
		Comment:     info.Comment,
		LastUsed:    privInfo.ModTime(),
	}, ""
}
