// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keygen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/toeirei/keyring/internal/model"
)

// MaxNameLength is the longest key name accepted, in bytes.
const MaxNameLength = 128

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@+-]*$`)

// reservedNames are files OpenSSH itself keeps in ~/.ssh.
var reservedNames = map[string]struct{}{
	"config":           {},
	"known_hosts":      {},
	"known_hosts.old":  {},
	"authorized_keys":  {},
	"authorized_keys2": {},
	"environment":      {},
	"rc":               {},
}

// ValidateName checks that name is usable as a flat file name in the store.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: key name is empty", model.ErrValidation)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: key name longer than %d bytes", model.ErrValidation, MaxNameLength)
	case !namePattern.MatchString(name):
		return fmt.Errorf("%w: key name %q may only contain letters, digits and . _ @ + - and must start with a letter or digit", model.ErrValidation, name)
	case strings.HasSuffix(name, model.PublicKeySuffix):
		return fmt.Errorf("%w: key name %q must not end in %s", model.ErrValidation, name, model.PublicKeySuffix)
	}
	if _, ok := reservedNames[strings.ToLower(name)]; ok {
		return fmt.Errorf("%w: %q is a reserved file name", model.ErrValidation, name)
	}
	return nil
}

// NormalizeKeyType lower-cases keyType and checks it is supported.
func NormalizeKeyType(keyType string) (string, error) {
	kt := strings.ToLower(strings.TrimSpace(keyType))
	switch kt {
	case model.KeyTypeRSA, model.KeyTypeEd25519, model.KeyTypeECDSA:
		return kt, nil
	}
	return "", fmt.Errorf("%w: %q (supported: rsa, ed25519, ecdsa)", model.ErrUnsupportedAlgorithm, keyType)
}

// ValidateComment rejects comments that would break the public key line.
func ValidateComment(comment string) error {
	if strings.ContainsAny(comment, "\r\n\x00") {
		return fmt.Errorf("%w: comment must be a single line", model.ErrValidation)
	}
	return nil
}

// bitsFor returns the fixed key size for keyType; zero for ed25519.
func bitsFor(keyType string) int {
	switch keyType {
	case model.KeyTypeRSA:
		return model.RSABits
	case model.KeyTypeECDSA:
		return model.ECDSABits
	}
	return 0
}

// plan is a validated generation request.
type plan struct {
	name    string
	keyType string
	bits    int
	comment string
}

func validate(req model.GenerateRequest) (plan, error) {
	if err := ValidateName(req.Name); err != nil {
		return plan{}, err
	}
	kt, err := NormalizeKeyType(req.KeyType)
	if err != nil {
		return plan{}, err
	}
	comment := req.EffectiveComment()
	if err := ValidateComment(comment); err != nil {
		return plan{}, err
	}
	return plan{name: req.Name, keyType: kt, bits: bitsFor(kt), comment: comment}, nil
}
