// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"encoding/json"
	"fmt"
	"io"
)

// redacted is what a Secret prints as in every textual form.
const redacted = "[SECRET]"

// Secret carries unencrypted private key bytes on their way from the key
// store or the generator to disk, a backup archive or an SSH agent. Printing
// it, logging it or encoding it as JSON or text yields a placeholder, so a
// key cannot leak through an error message or an audit detail.
type Secret []byte

func (s Secret) String() string { return redacted }

// Format covers %v, %#v, %s, %q and the rest, which would otherwise bypass
// String for a byte slice.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// FromBytes copies in, leaving the caller free to wipe its own buffer.
func FromBytes(in []byte) Secret {
	return Secret(append([]byte(nil), in...))
}

// Bytes hands out a private copy; whoever takes it wipes it.
func (s Secret) Bytes() []byte {
	return append([]byte(nil), s...)
}

// Use lends the key bytes to fn without copying them. fn must not retain
// the slice past its return.
func (s Secret) Use(fn func([]byte) error) error {
	return fn(s)
}

// Zero wipes the key bytes in place. It needs an addressable Secret and is
// a no-op on nil.
func (s *Secret) Zero() {
	if s == nil {
		return
	}
	clear(*s)
}
