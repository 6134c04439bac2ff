// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"strings"
	"time"
)

// Supported key algorithms for generation.
const (
	KeyTypeRSA     = "rsa"
	KeyTypeEd25519 = "ed25519"
	KeyTypeECDSA   = "ecdsa"
)

// RSABits is the fixed modulus size for generated RSA keys. It is policy,
// not configuration.
const RSABits = 4096

// ECDSABits is the curve size used for generated ECDSA keys.
const ECDSABits = 256

// PublicKeySuffix is the file extension of public key files in the store.
const PublicKeySuffix = ".pub"

// KeyEntry describes one managed key pair. It is reconstructed from the key
// store on every listing and never persisted as a record.
type KeyEntry struct {
	Name        string
	KeyType     string
	Fingerprint string
	Comment     string
	// LastUsed is the modification time of the private key file.
	LastUsed time.Time
}

// GenerateRequest carries the caller's parameters for key generation.
type GenerateRequest struct {
	Name    string
	KeyType string
	Comment string
	Email   string
}

// EffectiveComment returns the comment to embed in the public key. An email
// takes precedence over a plain comment.
func (r GenerateRequest) EffectiveComment() string {
	if e := strings.TrimSpace(r.Email); e != "" {
		return e
	}
	return strings.TrimSpace(r.Comment)
}

// NormalizeKeyType maps an SSH wire algorithm name (as found in public key
// files) to the short names used in listings.
func NormalizeKeyType(wireType string) string {
	switch {
	case wireType == "ssh-rsa":
		return KeyTypeRSA
	case wireType == "ssh-ed25519":
		return KeyTypeEd25519
	case wireType == "ssh-dss":
		return "dsa"
	case strings.HasPrefix(wireType, "ecdsa-sha2-"):
		return KeyTypeECDSA
	case strings.HasPrefix(wireType, "sk-ssh-ed25519"):
		return "ed25519-sk"
	case strings.HasPrefix(wireType, "sk-ecdsa-sha2-"):
		return "ecdsa-sk"
	default:
		return wireType
	}
}
