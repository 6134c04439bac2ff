//go:build windows
// +build windows

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package agent

import (
	"net"
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"
)

const openSSHPipe = `\\.\pipe\openssh-ssh-agent`

// getSSHAgent tries a Pageant-compatible agent first, then the OpenSSH
// agent's named pipe (SSH_AUTH_SOCK or the default pipe name).
func getSSHAgent() *Conn {
	if pageant.Available() {
		return &Conn{Agent: pageant.New()}
	}

	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = openSSHPipe
	}
	var agentConn net.Conn
	agentConn, err := winio.DialPipe(pipe, nil)
	if err != nil || agentConn == nil {
		return nil
	}
	return &Conn{Agent: agent.NewClient(agentConn), closer: agentConn}
}
