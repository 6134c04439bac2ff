// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keygen

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	cryptossh "github.com/toeirei/keyring/internal/crypto/ssh"
	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

// Backend names accepted by NewBackend.
const (
	BackendAuto      = "auto"
	BackendSSHKeygen = "ssh-keygen"
	BackendNative    = "native"
)

// DefaultTimeout bounds a single ssh-keygen invocation.
const DefaultTimeout = 60 * time.Second

// Backend produces a fresh unencrypted key pair. The private key is returned
// in OpenSSH PEM format and the public key in authorized_keys format.
type Backend interface {
	Name() string
	Generate(ctx context.Context, keyType string, bits int, comment string) (private security.Secret, public []byte, err error)
}

// NewBackend returns the backend named by kind. "auto" picks ssh-keygen when
// it is on PATH and the native generator otherwise.
func NewBackend(kind string, timeout time.Duration) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendAuto:
		if _, err := exec.LookPath(sshKeygenBinary); err == nil {
			return &SSHKeygen{Timeout: timeout}, nil
		}
		logging.Debugf("%s not found on PATH, using native key generation", sshKeygenBinary)
		return Native{}, nil
	case BackendSSHKeygen:
		return &SSHKeygen{Timeout: timeout}, nil
	case BackendNative:
		return Native{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown keygen backend %q", model.ErrValidation, kind)
	}
}

// Native generates keys in-process with golang.org/x/crypto/ssh.
type Native struct{}

func (Native) Name() string { return BackendNative }

func (Native) Generate(ctx context.Context, keyType string, bits int, comment string) (security.Secret, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	priv, pub, err := cryptossh.GenerateKeyPair(keyType, bits, comment)
	if err != nil {
		return nil, nil, &model.ToolError{Tool: BackendNative, Err: err}
	}
	return security.Secret(priv), pub, nil
}
