// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
)

// ErrEncryptionDisabled is returned by EncryptAtRest and DecryptAtRest when
// the gate has no encryption key. An identity transform is never offered in
// its place.
var ErrEncryptionDisabled = errors.New("at-rest encryption is not configured")

// ErrDecrypt is returned when a ciphertext fails authentication.
var ErrDecrypt = errors.New("decrypt: invalid or tampered token")

// defaultAuditTimeout bounds how long LogOperation may wait on its sink.
const defaultAuditTimeout = 3 * time.Second

// noTTL disables the token age check; backups do not expire.
const noTTL = -1

// Gate is the pluggable point for at-rest encryption and audit logging of
// sensitive operations.
type Gate interface {
	// EncryptAtRest returns an authenticated ciphertext of plaintext.
	EncryptAtRest(plaintext []byte) ([]byte, error)
	// DecryptAtRest reverses EncryptAtRest.
	DecryptAtRest(ciphertext []byte) ([]byte, error)
	// Encrypts reports whether EncryptAtRest performs a real transform.
	Encrypts() bool
	// LogOperation appends op to the audit trail. Callers treat a returned
	// error as a warning, never as a failure of the audited operation.
	LogOperation(ctx context.Context, op Operation) error
}

// Clock provides an abstraction over time.Now for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a gate built by NewGate.
type Option func(*gate)

// WithFernetKey enables at-rest encryption with key.
func WithFernetKey(key *fernet.Key) Option {
	return func(g *gate) { g.key = key }
}

// WithAuditSink routes LogOperation to sink.
func WithAuditSink(sink AuditSink) Option {
	return func(g *gate) { g.sink = sink }
}

// WithClock replaces the clock used to timestamp operations.
func WithClock(c Clock) Option {
	return func(g *gate) { g.clock = c }
}

// WithAuditTimeout overrides how long LogOperation waits on the sink.
func WithAuditTimeout(d time.Duration) Option {
	return func(g *gate) { g.timeout = d }
}

type gate struct {
	key     *fernet.Key
	sink    AuditSink
	clock   Clock
	timeout time.Duration
}

// NewGate builds a Gate. Without options the gate is inert: it refuses to
// encrypt and drops audit records.
func NewGate(opts ...Option) Gate {
	g := &gate{clock: systemClock{}, timeout: defaultAuditTimeout}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *gate) Encrypts() bool { return g.key != nil }

func (g *gate) EncryptAtRest(plaintext []byte) ([]byte, error) {
	if g.key == nil {
		return nil, ErrEncryptionDisabled
	}
	tok, err := fernet.EncryptAndSign(plaintext, g.key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return tok, nil
}

func (g *gate) DecryptAtRest(ciphertext []byte) ([]byte, error) {
	if g.key == nil {
		return nil, ErrEncryptionDisabled
	}
	msg := fernet.VerifyAndDecrypt(ciphertext, noTTL, []*fernet.Key{g.key})
	if msg == nil {
		return nil, ErrDecrypt
	}
	return msg, nil
}

func (g *gate) LogOperation(ctx context.Context, op Operation) error {
	if g.sink == nil {
		return nil
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = g.clock.Now().UTC()
	}
	if op.Username == "" {
		op.Username = currentUsername()
	}
	if op.Outcome == "" {
		op.Outcome = OutcomeOK
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.sink.Record(ctx, op); err != nil {
		return fmt.Errorf("audit %s: %w", op.Action, err)
	}
	return nil
}
