//go:build windows

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

const (
	lockfileFailImmediately = 0x00000001
	lockfileExclusiveLock   = 0x00000002
)

// tryLockFile attempts a non-blocking shared or exclusive lock on file.
func tryLockFile(file *os.File, exclusive bool) (bool, error) {
	var flags uint32 = lockfileFailImmediately
	if exclusive {
		flags |= lockfileExclusiveLock
	}
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(windows.Handle(file.Fd()), flags, 0, 1, 0, ol)
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return false, nil
	}
	return err == nil, err
}

// unlockFile releases the lock on the file
func unlockFile(file *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(file.Fd()), 0, 1, 0, ol)
}
