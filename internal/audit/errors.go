// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an operation ID has already been recorded.
var ErrDuplicate = errors.New("duplicate record")

// MapDBError maps common driver constraint violations to ErrDuplicate. The
// mapping is string based so the package does not depend on driver error
// types.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	// MySQL duplicate entry (1062), Postgres unique violation (23505), SQLite unique constraint.
	if strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062") {
		return ErrDuplicate
	}
	return err
}
