// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keygen

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
	"github.com/toeirei/keyring/internal/sshconfig"
	"github.com/toeirei/keyring/internal/testutil"
)

func newGenerator(t *testing.T, backend Backend) (*Generator, *keystore.Store) {
	t.Helper()
	store, err := keystore.New(filepath.Join(t.TempDir(), "ssh"))
	if err != nil {
		t.Fatal(err)
	}
	return New(store, backend, sshconfig.New(store.ConfigPath())), store
}

func TestGenerate_WritesPairAndConfig(t *testing.T) {
	fake := testutil.NewFakeBackend()
	g, store := newGenerator(t, fake)

	err := g.Generate(context.Background(), model.GenerateRequest{Name: "work", KeyType: "ED25519", Email: "me@example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	pub, err := store.ReadPublic("work")
	if err != nil {
		t.Fatal(err)
	}
	info, err := cryptossh.ParsePublicKeyFile(pub)
	if err != nil {
		t.Fatal(err)
	}
	if info.Comment != "me@example.com" {
		t.Fatalf("comment = %q", info.Comment)
	}
	if runtime.GOOS != "windows" {
		fi, err := os.Stat(store.PrivatePath("work"))
		if err != nil {
			t.Fatal(err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Fatalf("private key mode = %v", fi.Mode().Perm())
		}
	}
	ok, err := sshconfig.New(store.ConfigPath()).HasEntry(store.PrivatePath("work"))
	if err != nil || !ok {
		t.Fatalf("config entry missing: %v", err)
	}
	calls := fake.Calls()
	if len(calls) != 1 || calls[0].KeyType != "ed25519" {
		t.Fatalf("backend calls = %+v", calls)
	}
}

func TestGenerate_ValidationBeforeIO(t *testing.T) {
	fake := testutil.NewFakeBackend()
	g, store := newGenerator(t, fake)

	err := g.Generate(context.Background(), model.GenerateRequest{Name: "bad/name", KeyType: "rsa"})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	err = g.Generate(context.Background(), model.GenerateRequest{Name: "ok", KeyType: "dsa"})
	if !errors.Is(err, model.ErrUnsupportedAlgorithm) {
		t.Fatalf("err = %v, want ErrUnsupportedAlgorithm", err)
	}
	if len(fake.Calls()) != 0 {
		t.Fatalf("backend invoked for invalid request")
	}
	if _, err := os.Stat(store.Root()); !os.IsNotExist(err) {
		t.Fatalf("store root created for invalid request")
	}
}

func TestGenerate_RejectsCollision(t *testing.T) {
	g, store := newGenerator(t, testutil.NewFakeBackend())
	req := model.GenerateRequest{Name: "dup", KeyType: "ed25519"}
	if err := g.Generate(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	before, _ := store.ReadPublic("dup")

	err := g.Generate(context.Background(), req)
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	after, _ := store.ReadPublic("dup")
	if string(before) != string(after) {
		t.Fatalf("existing key overwritten")
	}
}

func TestGenerate_OrphanPublicCountsAsCollision(t *testing.T) {
	g, store := newGenerator(t, testutil.NewFakeBackend())
	if err := store.EnsureRoot(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.PublicPath("stray"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := g.Generate(context.Background(), model.GenerateRequest{Name: "stray", KeyType: "ed25519"})
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestGenerate_BackendFailure(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.GenerateFunc = func(context.Context, string, int, string) (security.Secret, []byte, error) {
		return nil, nil, &model.ToolError{Tool: "ssh-keygen", ExitCode: 1, Stderr: "boom"}
	}
	g, store := newGenerator(t, fake)

	err := g.Generate(context.Background(), model.GenerateRequest{Name: "k", KeyType: "rsa"})
	if !errors.Is(err, model.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
	var te *model.ToolError
	if !errors.As(err, &te) || te.Stderr != "boom" {
		t.Fatalf("tool error not propagated: %v", err)
	}
	if ok, _ := store.Exists("k"); ok {
		t.Fatalf("files left behind after backend failure")
	}
}

func TestGenerate_GarbagePublicKey(t *testing.T) {
	fake := testutil.NewFakeBackend()
	fake.GenerateFunc = func(context.Context, string, int, string) (security.Secret, []byte, error) {
		return security.Secret("priv"), []byte("not a key\n"), nil
	}
	g, store := newGenerator(t, fake)
	err := g.Generate(context.Background(), model.GenerateRequest{Name: "k", KeyType: "ed25519"})
	if !errors.Is(err, model.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
	if ok, _ := store.Exists("k"); ok {
		t.Fatalf("files written for unusable key material")
	}
}

func TestGenerate_ConfigFailureKeepsFiles(t *testing.T) {
	g, store := newGenerator(t, testutil.NewFakeBackend())
	if err := store.EnsureRoot(); err != nil {
		t.Fatal(err)
	}
	// A directory in place of the config file makes the sync step fail.
	if err := os.Mkdir(store.ConfigPath(), 0o700); err != nil {
		t.Fatal(err)
	}
	err := g.Generate(context.Background(), model.GenerateRequest{Name: "k", KeyType: "ecdsa"})
	if !errors.Is(err, model.ErrConfigSync) {
		t.Fatalf("err = %v, want ErrConfigSync", err)
	}
	if ok, _ := store.Exists("k"); !ok {
		t.Fatalf("key files removed after config failure")
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("native", 0)
	if err != nil || b.Name() != BackendNative {
		t.Fatalf("native backend: %v %v", b, err)
	}
	b, err = NewBackend("SSH-KEYGEN", 0)
	if err != nil || b.Name() != BackendSSHKeygen {
		t.Fatalf("ssh-keygen backend: %v %v", b, err)
	}
	b, err = NewBackend("auto", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, lookErr := exec.LookPath("ssh-keygen"); lookErr == nil && b.Name() != BackendSSHKeygen {
		t.Fatalf("auto picked %s with ssh-keygen on PATH", b.Name())
	}
	if _, err := NewBackend("openssl", 0); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("unknown backend err = %v", err)
	}
}

func TestNative_Generate(t *testing.T) {
	priv, pub, err := Native{}.Generate(context.Background(), "ecdsa", 256, "c")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(priv), "OPENSSH PRIVATE KEY") {
		t.Fatalf("private key not in OpenSSH format")
	}
	if !strings.HasPrefix(string(pub), "ecdsa-sha2-nistp256 ") {
		t.Fatalf("public key = %q", pub)
	}
}

func TestSSHKeygen_MissingBinary(t *testing.T) {
	b := &SSHKeygen{Binary: "keyring-no-such-ssh-keygen"}
	_, _, err := b.Generate(context.Background(), "ed25519", 0, "")
	if !errors.Is(err, model.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
}

func TestSSHKeygen_Generate(t *testing.T) {
	if _, err := exec.LookPath("ssh-keygen"); err != nil {
		t.Skip("ssh-keygen not installed")
	}
	scratch := t.TempDir()
	b := &SSHKeygen{TempDir: scratch}
	priv, pub, err := b.Generate(context.Background(), "ed25519", 0, "me@example.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(string(pub), "ssh-ed25519 ") || !strings.Contains(string(pub), "me@example.com") {
		t.Fatalf("public key = %q", pub)
	}
	if _, err := cryptossh.ParseRawPrivateKey(priv); err != nil {
		t.Fatalf("private key does not parse: %v", err)
	}
	entries, _ := os.ReadDir(scratch)
	if len(entries) != 0 {
		t.Fatalf("scratch directory not cleaned up: %v", entries)
	}
}
