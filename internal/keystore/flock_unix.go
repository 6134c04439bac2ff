//go:build unix

// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLockFile attempts a non-blocking shared or exclusive flock on file.
func tryLockFile(file *os.File, exclusive bool) (bool, error) {
	lockType := unix.LOCK_SH
	if exclusive {
		lockType = unix.LOCK_EX
	}
	err := unix.Flock(int(file.Fd()), lockType|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return err == nil, err
}

// unlockFile releases the lock on the file
func unlockFile(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
