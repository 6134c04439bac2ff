// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Components wrap causes with these so callers can branch with
// errors.Is regardless of which layer failed.
var (
	// ErrValidation is returned for bad input, before any I/O happens.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound is returned when an operation targets a key that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage covers filesystem create, write, permission and delete failures.
	ErrStorage = errors.New("storage error")
	// ErrExternalTool is returned when a subprocess is missing or exits non-zero.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfigSync covers read and write failures on the SSH config file.
	ErrConfigSync = errors.New("config sync error")
)

// ErrAlreadyExists and ErrUnsupportedAlgorithm are validation failures.
var (
	ErrAlreadyExists        = fmt.Errorf("%w: key already exists", ErrValidation)
	ErrUnsupportedAlgorithm = fmt.Errorf("%w: unsupported key algorithm", ErrValidation)
)

// ToolError carries the diagnostics of a failed subprocess.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Tool, msg)
}

// Unwrap exposes ErrExternalTool and the underlying cause.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}
