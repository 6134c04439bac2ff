// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

func writeKey(t *testing.T, store *keystore.Store, name, keyType, comment string) {
	t.Helper()
	bits := 0
	if keyType == "rsa" {
		bits = 1024
	}
	if keyType == "ecdsa" {
		bits = 256
	}
	priv, pub, err := cryptossh.GenerateKeyPair(keyType, bits, comment)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.WritePair(name, security.Secret(priv), pub); err != nil {
		t.Fatal(err)
	}
}

func newStore(t *testing.T) *keystore.Store {
	t.Helper()
	s, err := keystore.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func names(entries []model.KeyEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	sort.Strings(out)
	return out
}

func TestList_Empty(t *testing.T) {
	s, err := keystore.New(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := List(s)
	if err != nil || len(entries) != 0 {
		t.Fatalf("List on missing root = %v, %v", entries, err)
	}
}

func TestList_Entries(t *testing.T) {
	s := newStore(t)
	writeKey(t, s, "work", "ed25519", "me@example.com")
	writeKey(t, s, "legacy", "rsa", "")
	writeKey(t, s, "ec", "ecdsa", "x")

	entries, err := List(s)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(names(entries), ","); got != "ec,legacy,work" {
		t.Fatalf("names = %s", got)
	}
	types := map[string]string{}
	for _, e := range entries {
		types[e.Name] = e.KeyType
		if !strings.HasPrefix(e.Fingerprint, "SHA256:") {
			t.Errorf("%s fingerprint = %q", e.Name, e.Fingerprint)
		}
		if e.LastUsed.IsZero() || time.Since(e.LastUsed) > time.Hour {
			t.Errorf("%s last used = %v", e.Name, e.LastUsed)
		}
		if e.Name == "work" && e.Comment != "me@example.com" {
			t.Errorf("work comment = %q", e.Comment)
		}
	}
	want := map[string]string{"work": "ed25519", "legacy": "rsa", "ec": "ecdsa"}
	for n, kt := range want {
		if types[n] != kt {
			t.Errorf("%s key type = %q, want %q", n, types[n], kt)
		}
	}
}

func TestList_SkipsStrayFiles(t *testing.T) {
	s := newStore(t)
	writeKey(t, s, "good", "ed25519", "")
	root := s.Root()

	// Orphaned public key, garbage public key, oversized file, directory.
	_, pub, err := cryptossh.GenerateKeyPair("ed25519", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(root, "orphan.pub"), pub)
	mustWrite(t, filepath.Join(root, "garbage"), []byte("x"))
	mustWrite(t, filepath.Join(root, "garbage.pub"), []byte("this is not a key\n"))
	mustWrite(t, filepath.Join(root, "huge"), []byte("x"))
	mustWrite(t, filepath.Join(root, "huge.pub"), append(pub, make([]byte, MaxPublicKeySize)...))
	if err := os.Mkdir(filepath.Join(root, "dir.pub"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "privdir"), 0o700); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(root, "privdir.pub"), pub)

	entries, err := List(s)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(names(entries), ","); got != "good" {
		t.Fatalf("names = %s, want good", got)
	}
}

type failingSource struct{}

func (failingSource) ListPublicFiles() ([]string, error) {
	return nil, model.ErrStorage
}

func TestList_SourceError(t *testing.T) {
	if _, err := List(failingSource{}); !errors.Is(err, model.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
