// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keygen

import (
	"context"
	"fmt"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/keystore"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/sshconfig"
)

// Generator creates key pairs in a store and registers them in the SSH
// config. It does not lock; callers hold the store's exclusive lock.
type Generator struct {
	store   *keystore.Store
	backend Backend
	config  *sshconfig.Synchronizer
}

// New returns a Generator writing to store through backend and registering
// keys with config.
func New(store *keystore.Store, backend Backend, config *sshconfig.Synchronizer) *Generator {
	return &Generator{store: store, backend: backend, config: config}
}

// Generate validates req, creates the key pair and adds its config entry.
// Nothing is written when validation fails or the name is taken. When the
// config step fails the key files are kept and an ErrConfigSync error is
// returned.
func (g *Generator) Generate(ctx context.Context, req model.GenerateRequest) error {
	p, err := validate(req)
	if err != nil {
		return err
	}
	exists, err := g.store.Exists(p.name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", model.ErrAlreadyExists, p.name)
	}
	if err := g.store.EnsureRoot(); err != nil {
		return err
	}

	private, public, err := g.backend.Generate(ctx, p.keyType, p.bits, p.comment)
	if err != nil {
		return err
	}
	defer private.Zero()

	if _, err := cryptossh.ParsePublicKeyFile(public); err != nil {
		return &model.ToolError{Tool: g.backend.Name(), Err: fmt.Errorf("backend produced an unusable public key: %w", err)}
	}
	if err := g.store.WritePair(p.name, private, public); err != nil {
		return err
	}
	logging.Infof("generated %s key %q with %s", p.keyType, p.name, g.backend.Name())

	if _, err := g.config.AddEntry(g.store.PrivatePath(p.name)); err != nil {
		logging.Warnf("key %q was created but the SSH config was not updated: %v", p.name, err)
		return err
	}
	return nil
}
