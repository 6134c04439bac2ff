// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
)

type recordingSink struct {
	ops []Operation
	err error
}

func (r *recordingSink) Record(_ context.Context, op Operation) error {
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, op)
	return nil
}

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestInertGateRefusesEncryption(t *testing.T) {
	g := NewGate()
	if g.Encrypts() {
		t.Fatalf("inert gate must not report encryption")
	}
	if _, err := g.EncryptAtRest([]byte("data")); !errors.Is(err, ErrEncryptionDisabled) {
		t.Fatalf("expected ErrEncryptionDisabled, got %v", err)
	}
	if _, err := g.DecryptAtRest([]byte("data")); !errors.Is(err, ErrEncryptionDisabled) {
		t.Fatalf("expected ErrEncryptionDisabled, got %v", err)
	}
	if err := g.LogOperation(context.Background(), Operation{Action: OpGenerateKey}); err != nil {
		t.Fatalf("inert gate LogOperation should be a no-op, got %v", err)
	}
}

func TestFernetGateRoundTrip(t *testing.T) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		t.Fatalf("generate: %v", err)
	}
	g := NewGate(WithFernetKey(&k))
	if !g.Encrypts() {
		t.Fatalf("expected gate with key to encrypt")
	}
	plain := []byte("private key bytes")
	ct, err := g.EncryptAtRest(plain)
	if err != nil {
		t.Fatalf("EncryptAtRest: %v", err)
	}
	if bytes.Contains(ct, plain) {
		t.Fatalf("ciphertext contains plaintext")
	}
	got, err := g.DecryptAtRest(ct)
	if err != nil {
		t.Fatalf("DecryptAtRest: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: %q", got)
	}

	ct[len(ct)/2] ^= 0x01
	if _, err := g.DecryptAtRest(ct); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for tampered token, got %v", err)
	}
}

func TestLogOperationFillsDefaults(t *testing.T) {
	sink := &recordingSink{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGate(WithAuditSink(sink), WithClock(fixedClock{now}))

	if err := g.LogOperation(context.Background(), Operation{Action: OpDeleteKey, Subject: "alice"}); err != nil {
		t.Fatalf("LogOperation: %v", err)
	}
	if len(sink.ops) != 1 {
		t.Fatalf("expected one recorded op, got %d", len(sink.ops))
	}
	op := sink.ops[0]
	if op.ID == "" || op.Username == "" {
		t.Fatalf("expected id and username to be filled: %+v", op)
	}
	if !op.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp %v", op.Timestamp)
	}
	if op.Outcome != OutcomeOK {
		t.Fatalf("expected default outcome ok, got %q", op.Outcome)
	}
}

func TestLogOperationReportsSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	g := NewGate(WithAuditSink(sink))
	err := g.LogOperation(context.Background(), Operation{Action: OpBackup})
	if err == nil {
		t.Fatalf("expected sink failure to be reported")
	}
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gate.key")
	k1, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if filepath.Separator == '/' && info.Mode().Perm() != 0o600 {
		t.Fatalf("expected key file mode 0600, got %o", info.Mode().Perm())
	}
	k2, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if k1.Encode() != k2.Encode() {
		t.Fatalf("reloaded key differs from created key")
	}
}

func TestLoadOrCreateKeyRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.key")
	if err := os.WriteFile(path, []byte("not-a-key"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOrCreateKey(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
