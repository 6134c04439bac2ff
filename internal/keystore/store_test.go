// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ssh"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	return s
}

func TestNewRejectsEmptyRoot(t *testing.T) {
	if _, err := New("  "); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEnsureRootIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureRoot(); err != nil {
		t.Fatalf("second EnsureRoot: %v", err)
	}
	info, err := os.Stat(s.Root())
	if err != nil || !info.IsDir() {
		t.Fatalf("expected root directory, stat err=%v", err)
	}
}

func TestWritePairPermissions(t *testing.T) {
	s := newTestStore(t)
	if err := s.WritePair("alice", security.Secret("PRIVATE"), []byte("ssh-ed25519 AAAA alice\n")); err != nil {
		t.Fatalf("WritePair: %v", err)
	}
	priv, err := os.Stat(s.PrivatePath("alice"))
	if err != nil {
		t.Fatalf("stat private: %v", err)
	}
	pub, err := os.Stat(s.PublicPath("alice"))
	if err != nil {
		t.Fatalf("stat public: %v", err)
	}
	if !PermissionsEnforced {
		t.Skip("permission bits are not enforced on this platform")
	}
	if priv.Mode().Perm() != 0o600 {
		t.Fatalf("private mode = %o, want 600", priv.Mode().Perm())
	}
	if priv.Mode().Perm()&0o077 != 0 {
		t.Fatalf("private key is accessible to group/other: %o", priv.Mode().Perm())
	}
	if pub.Mode().Perm() != 0o644 {
		t.Fatalf("public mode = %o, want 644", pub.Mode().Perm())
	}
}

func TestWritePairRejectsExisting(t *testing.T) {
	s := newTestStore(t)
	if err := s.WritePair("bob", security.Secret("ONE"), []byte("pub1")); err != nil {
		t.Fatalf("first WritePair: %v", err)
	}
	err := s.WritePair("bob", security.Secret("TWO"), []byte("pub2"))
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	data, _ := os.ReadFile(s.PrivatePath("bob"))
	if string(data) != "ONE" {
		t.Fatalf("existing private key was overwritten: %q", data)
	}
}

func TestWritePairRejectsOrphanPublic(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.PublicPath("carol"), []byte("pub"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.WritePair("carol", security.Secret("PRIV"), []byte("pub")); !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := os.Stat(s.PrivatePath("carol")); !os.IsNotExist(err) {
		t.Fatalf("private file must not be created, stat err=%v", err)
	}
}

func TestDeletePairIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.WritePair("dave", security.Secret("P"), []byte("p")); err != nil {
		t.Fatalf("WritePair: %v", err)
	}
	removed, err := s.DeletePair("dave")
	if err != nil || !removed {
		t.Fatalf("DeletePair = %v, %v; want true, nil", removed, err)
	}
	removed, err = s.DeletePair("dave")
	if err != nil || removed {
		t.Fatalf("second DeletePair = %v, %v; want false, nil", removed, err)
	}
}

func TestDeletePairPartial(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.PublicPath("erin"), []byte("p"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	removed, err := s.DeletePair("erin")
	if err != nil || !removed {
		t.Fatalf("DeletePair = %v, %v; want true, nil", removed, err)
	}
}

func TestListPublicFiles(t *testing.T) {
	s := newTestStore(t)
	for name, content := range map[string]string{
		"a.pub":       "x",
		"b":           "x",
		"config":      "x",
		"notes.txt":   "x",
		"stray.pub":   "garbage",
		".hidden.pub": "x",
	} {
		if err := os.WriteFile(filepath.Join(s.Root(), name), []byte(content), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(s.Root(), "dir.pub"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files, err := s.ListPublicFiles()
	if err != nil {
		t.Fatalf("ListPublicFiles: %v", err)
	}
	got := map[string]bool{}
	for _, f := range files {
		got[filepath.Base(f)] = true
	}
	want := []string{"a.pub", "stray.pub", ".hidden.pub"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for _, w := range want {
		if !got[w] {
			t.Fatalf("missing %s in %v", w, got)
		}
	}
}

func TestListPublicFilesMissingRoot(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	files, err := s.ListPublicFiles()
	if err != nil || len(files) != 0 {
		t.Fatalf("ListPublicFiles = %v, %v; want empty, nil", files, err)
	}
}

func TestReadPublicNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ReadPublic("ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadPrivate("ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNamesCannotEscapeRoot(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		if err := s.WritePair(name, security.Secret("p"), []byte("p")); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("WritePair(%q): expected ErrValidation, got %v", name, err)
		}
		if _, err := s.DeletePair(name); !errors.Is(err, model.ErrValidation) {
			t.Fatalf("DeletePair(%q): expected ErrValidation, got %v", name, err)
		}
	}
}
