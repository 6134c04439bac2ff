// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package ssh

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// GenerateKeyPair creates a new key pair of keyType ("rsa", "ed25519" or
// "ecdsa") and returns the unencrypted private key in OpenSSH PEM format and
// the public key in authorized_keys format. bits is only used for rsa and
// ecdsa (256, 384 or 521).
func GenerateKeyPair(keyType string, bits int, comment string) (privatePEM []byte, authorizedKey []byte, err error) {
	var signer crypto.Signer
	switch keyType {
	case "ed25519":
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
		}
		signer = priv
	case "rsa":
		priv, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate rsa key pair: %w", err)
		}
		signer = priv
	case "ecdsa":
		curve, err := ecdsaCurve(bits)
		if err != nil {
			return nil, nil, err
		}
		priv, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate ecdsa key pair: %w", err)
		}
		signer = priv
	default:
		return nil, nil, fmt.Errorf("unsupported key type %q", keyType)
	}

	sshPubKey, err := ssh.NewPublicKey(signer.Public())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	pemBlock, err := ssh.MarshalPrivateKey(signer, comment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(pemBlock), formatAuthorizedKey(sshPubKey, comment), nil
}

func ecdsaCurve(bits int) (elliptic.Curve, error) {
	switch bits {
	case 0, 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported ecdsa curve size %d", bits)
	}
}
