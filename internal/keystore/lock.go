// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

package keystore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/toeirei/keyring/internal/logging"
	"github.com/toeirei/keyring/internal/model"
)

// lockPollInterval is how often a blocked file lock is retried.
const lockPollInterval = 10 * time.Millisecond

var (
	registryMu sync.Mutex
	registry   = map[string]*sync.RWMutex{}
)

// rootMutex returns the in-process lock shared by every Store with the same root.
func rootMutex(root string) *sync.RWMutex {
	registryMu.Lock()
	defer registryMu.Unlock()
	mu, ok := registry[root]
	if !ok {
		mu = &sync.RWMutex{}
		registry[root] = mu
	}
	return mu
}

// Lock acquires the store lock exclusively. It covers the key files and the
// config file, because every key's add or remove touches the shared config.
// The returned func releases the lock.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	return s.acquire(ctx, true)
}

// RLock acquires the store lock in shared mode for readers.
func (s *Store) RLock(ctx context.Context) (func(), error) {
	return s.acquire(ctx, false)
}

func (s *Store) acquire(ctx context.Context, exclusive bool) (func(), error) {
	mu := rootMutex(s.root)
	lock, unlock := mu.RLock, mu.RUnlock
	if exclusive {
		lock, unlock = mu.Lock, mu.Unlock
	}
	if err := lockCtx(ctx, lock, unlock); err != nil {
		return nil, fmt.Errorf("%w: acquire store lock: %w", model.ErrStorage, err)
	}

	f, err := s.openLockFile(exclusive)
	if err != nil {
		if !exclusive {
			// Readers degrade to the in-process lock on missing or read-only roots.
			logging.L.Debug("store lock file unavailable", "root", s.root, "err", err)
			var once sync.Once
			return func() { once.Do(unlock) }, nil
		}
		unlock()
		return nil, fmt.Errorf("%w: open lock file: %w", model.ErrStorage, err)
	}
	if err := poll(ctx, func() (bool, error) { return tryLockFile(f, exclusive) }); err != nil {
		_ = f.Close()
		unlock()
		return nil, fmt.Errorf("%w: lock %s: %w", model.ErrStorage, f.Name(), err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = unlockFile(f)
			_ = f.Close()
			unlock()
		})
	}, nil
}

// openLockFile opens the lock file. Only writers create the root for it.
func (s *Store) openLockFile(createRoot bool) (*os.File, error) {
	if createRoot {
		if err := s.EnsureRoot(); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(filepath.Join(s.root, lockFileName), os.O_CREATE|os.O_RDWR, privateKeyMode)
}

// lockCtx blocks in lock until it returns or ctx is done. A waiting writer
// holds back new readers the way sync.RWMutex does, so a steady stream of
// readers cannot starve it. When ctx ends first, the lock is released as soon
// as the abandoned acquisition completes.
func lockCtx(ctx context.Context, lock, unlock func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	acquired := make(chan struct{})
	go func() {
		lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		go func() {
			<-acquired
			unlock()
		}()
		return ctx.Err()
	}
}

// poll calls try until it succeeds or fails, or until ctx is done.
func poll(ctx context.Context, try func() (bool, error)) error {
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
