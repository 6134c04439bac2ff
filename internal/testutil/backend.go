// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil holds test doubles shared across package tests.
package testutil

import (
	"context"
	"sync"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

// FastRSABits keeps fake RSA generation quick; real keys use model.RSABits.
const FastRSABits = 1024

// FakeBackend is an in-process key generation backend. It generates real
// keys so the results parse, but RSA keys are kept small.
type FakeBackend struct {
	// GenerateFunc, if set, replaces the default generation.
	GenerateFunc func(ctx context.Context, keyType string, bits int, comment string) (security.Secret, []byte, error)

	mu    sync.Mutex
	calls []FakeCall
}

// FakeCall records the arguments of one Generate call.
type FakeCall struct {
	KeyType string
	Bits    int
	Comment string
}

// NewFakeBackend returns a ready-to-use FakeBackend.
func NewFakeBackend() *FakeBackend { return &FakeBackend{} }

func (f *FakeBackend) Name() string { return "fake" }

func (f *FakeBackend) Generate(ctx context.Context, keyType string, bits int, comment string) (security.Secret, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{KeyType: keyType, Bits: bits, Comment: comment})
	fn := f.GenerateFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, keyType, bits, comment)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if keyType == model.KeyTypeRSA {
		bits = FastRSABits
	}
	priv, pub, err := cryptossh.GenerateKeyPair(keyType, bits, comment)
	if err != nil {
		return nil, nil, err
	}
	return security.Secret(priv), pub, nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeBackend) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
