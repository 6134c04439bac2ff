// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package ssh provides convenience wrappers around the golang.org/x/crypto/ssh package
// for handling SSH key formatting, parsing and generation.
package ssh // import "github.com/toeirei/keyring/internal/crypto/ssh"

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// FingerprintSHA256 returns the SHA256 fingerprint of the public key.
var FingerprintSHA256 = ssh.FingerprintSHA256

// ParseRawPrivateKey parses an unencrypted PEM private key.
var ParseRawPrivateKey = ssh.ParseRawPrivateKey

// PublicKeyInfo is the parsed content of a public key file.
type PublicKeyInfo struct {
	Key     ssh.PublicKey
	Comment string
}

// ParsePublicKeyFile parses the first key of an authorized_keys style file.
func ParsePublicKeyFile(data []byte) (PublicKeyInfo, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return PublicKeyInfo{}, fmt.Errorf("empty public key file")
	}
	pk, comment, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return PublicKeyInfo{}, fmt.Errorf("failed to parse public key: %w", err)
	}
	return PublicKeyInfo{Key: pk, Comment: comment}, nil
}

// formatAuthorizedKey renders pk in authorized_keys format with an optional
// trailing comment and newline.
func formatAuthorizedKey(pk ssh.PublicKey, comment string) []byte {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pk)))
	if comment != "" {
		line += " " + comment
	}
	return []byte(line + "\n")
}
