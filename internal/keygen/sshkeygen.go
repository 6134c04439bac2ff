// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keygen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

const sshKeygenBinary = "ssh-keygen"

// SSHKeygen runs the system ssh-keygen in a private scratch directory and
// reads the produced files back, so the store only ever sees complete pairs.
type SSHKeygen struct {
	// Binary overrides the executable; defaults to ssh-keygen on PATH.
	Binary string
	// Timeout bounds one invocation; zero means DefaultTimeout.
	Timeout time.Duration
	// TempDir is the parent of the scratch directory; empty means os.TempDir.
	TempDir string
}

func (b *SSHKeygen) Name() string { return BackendSSHKeygen }

// Args returns the ssh-keygen arguments for one non-interactive run writing
// to keyPath.
func Args(keyType string, bits int, comment, keyPath string) []string {
	args := []string{"-q", "-t", keyType}
	if keyType == model.KeyTypeRSA || keyType == model.KeyTypeECDSA {
		args = append(args, "-b", strconv.Itoa(bits))
	}
	if comment != "" {
		args = append(args, "-C", comment)
	}
	return append(args, "-N", "", "-f", keyPath)
}

func (b *SSHKeygen) Generate(ctx context.Context, keyType string, bits int, comment string) (security.Secret, []byte, error) {
	bin := b.Binary
	if bin == "" {
		bin = sshKeygenBinary
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, nil, &model.ToolError{Tool: bin, Err: err}
	}

	scratch, err := os.MkdirTemp(b.TempDir, "keyring-gen-")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create scratch directory: %w", model.ErrStorage, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logging.Warnf("could not remove scratch directory %s: %v", scratch, err)
		}
	}()
	keyPath := filepath.Join(scratch, "key")

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, Args(keyType, bits, comment, keyPath)...)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr
	logging.Debugf("running %s -t %s", bin, keyType)
	if err := cmd.Run(); err != nil {
		te := &model.ToolError{Tool: bin, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			te.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := runCtx.Err(); ctxErr != nil {
			te.Err = ctxErr
		}
		return nil, nil, te
	}

	priv, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, &model.ToolError{Tool: bin, Stderr: stderr.String(), Err: fmt.Errorf("read generated private key: %w", err)}
	}
	pub, err := os.ReadFile(keyPath + model.PublicKeySuffix)
	if err != nil {
		secret := security.Secret(priv)
		secret.Zero()
		return nil, nil, &model.ToolError{Tool: bin, Stderr: stderr.String(), Err: fmt.Errorf("read generated public key: %w", err)}
	}
	return security.Secret(priv), pub, nil
}
