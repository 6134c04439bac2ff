//go:build !windows
// +build !windows

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package agent

import (
	"net"
	"os"

	"golang.org/x/crypto/ssh/agent"
)

// getSSHAgent connects to the agent socket named by SSH_AUTH_SOCK.
func getSSHAgent() *Conn {
	if sshAgentSocket := os.Getenv("SSH_AUTH_SOCK"); sshAgentSocket != "" {
		if conn, err := net.Dial("unix", sshAgentSocket); err == nil {
			return &Conn{Agent: agent.NewClient(conn), closer: conn}
		}
	}
	return nil
}
