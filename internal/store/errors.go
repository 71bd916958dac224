// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"errors"
	"fmt"
)

// ErrStorage is returned when the durable backing fails to read, write or
// delete. The failed operation has been rolled back to its pre-call state;
// callers may retry or skip at their discretion.
var ErrStorage = errors.New("storage error")

// ErrEmptyName is returned when an entry name is empty or blank.
var ErrEmptyName = errors.New("key name must not be empty")

// wrapStorage tags a backing failure with ErrStorage while keeping the
// underlying error in the chain for errors.Is/As.
func wrapStorage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
