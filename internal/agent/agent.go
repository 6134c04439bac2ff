// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package agent loads managed private keys into a running SSH agent.
package agent // import "github.com/toeirei/keyring/internal/agent"

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// ErrNoAgent is returned by Connect when no agent can be reached.
var ErrNoAgent = errors.New("no SSH agent reachable")

// Conn is a client connection to an SSH agent.
type Conn struct {
	agent.Agent
	closer io.Closer
}

// Close releases the underlying connection, if any.
func (c *Conn) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Connect locates and dials the user's SSH agent.
func Connect() (*Conn, error) {
	c := getSSHAgent()
	if c == nil {
		return nil, &model.ToolError{Tool: "ssh-agent", Err: ErrNoAgent}
	}
	return c, nil
}

// AddKey parses the unencrypted private key and adds it to a under comment.
// A positive lifetime makes the agent forget the key after that duration.
func AddKey(a agent.Agent, private security.Secret, comment string, lifetime time.Duration) error {
	var raw any
	err := private.Use(func(b []byte) error {
		var err error
		raw, err = cryptossh.ParseRawPrivateKey(b)
		return err
	})
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return fmt.Errorf("%w: key %q is passphrase protected", model.ErrValidation, comment)
		}
		return fmt.Errorf("%w: parse private key %q: %w", model.ErrValidation, comment, err)
	}

	added := agent.AddedKey{PrivateKey: raw, Comment: comment}
	if lifetime > 0 {
		secs := lifetime.Seconds()
		if secs > math.MaxUint32 {
			secs = math.MaxUint32
		}
		added.LifetimeSecs = uint32(math.Ceil(secs))
	}
	if err := a.Add(added); err != nil {
		return &model.ToolError{Tool: "ssh-agent", Err: fmt.Errorf("add key %q: %w", comment, err)}
	}
	return nil
}
