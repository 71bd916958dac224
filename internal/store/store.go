// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

// package store implements the credential store: the authoritative,
// durable collection of named private-key entries. It owns both the
// in-memory index and the moment of durable commit; no other component
// writes entries. All mutations are validate-first and fail-atomic: a
// failed add or remove leaves the visible set and the backing location
// exactly as they were.
package store

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/toeirei/keychest/internal/keyfile"
	"github.com/toeirei/keychest/internal/model"
	"github.com/toeirei/keychest/internal/naming"
)

// Backing is the durable blob area the store persists into: one named blob
// per entry, addressed by the entry name. Implementations must make
// WriteKey an atomic insert-or-replace.
type Backing interface {
	ReadAllKeys(ctx context.Context) ([]model.KeyEntry, error)
	WriteKey(ctx context.Context, entry model.KeyEntry) (model.KeyEntry, error)
	DeleteKey(ctx context.Context, name string) error
}

// Store is the credential store. It is safe for concurrent use: a single
// mutex serializes mutations against each other and against snapshot
// production, and covers the durable commit so no caller can observe a
// half-completed add or remove.
type Store struct {
	mu      sync.Mutex
	backing Backing
	rename  naming.Strategy
	entries map[string]model.KeyEntry
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithNamingStrategy overrides the collision-safe naming strategy used by
// Import. The default is naming.Suffix.
func WithNamingStrategy(s naming.Strategy) Option {
	return func(st *Store) { st.rename = s }
}

// New creates a Store over the given backing and loads the current entry
// set from it. The backing is the durable source of truth; the in-memory
// index is only a cache of it.
func New(ctx context.Context, backing Backing, opts ...Option) (*Store, error) {
	s := &Store{
		backing: backing,
		rename:  naming.Suffix,
		entries: make(map[string]model.KeyEntry),
	}
	for _, opt := range opts {
		opt(s)
	}

	keys, err := backing.ReadAllKeys(ctx)
	if err != nil {
		return nil, wrapStorage("load key entries", err)
	}
	for _, k := range keys {
		s.entries[k.Name] = k
	}
	return s, nil
}

// List returns a fresh snapshot of all entries sorted by name (lexicographic
// on code points). The returned entries are deep copies; mutating them has
// no effect on the store.
func (s *Store) List() []model.KeyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.KeyEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the entry with the exact given name. Absence is reported
// through the boolean, not an error.
func (s *Store) Lookup(name string) (model.KeyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return model.KeyEntry{}, false
	}
	return e.Clone(), true
}

// Add validates data and persists it under exactly the given name. If an
// entry with that name already exists it is atomically replaced: the
// durable write commits first, then the in-memory entry is swapped, so at
// no point do two entries share a name or does the name appear absent while
// its blob exists.
func (s *Store) Add(ctx context.Context, name string, data []byte) (model.KeyEntry, error) {
	return s.add(ctx, name, data, naming.Exact)
}

// Import validates data and persists it under a collision-safe variant of
// candidateName: when the candidate already names an entry, the store's
// naming strategy derives a free name instead of overwriting. This is the
// path the file-import collaborator uses.
func (s *Store) Import(ctx context.Context, candidateName string, data []byte) (model.KeyEntry, error) {
	return s.add(ctx, candidateName, data, s.rename)
}

func (s *Store) add(ctx context.Context, name string, data []byte, rename naming.Strategy) (model.KeyEntry, error) {
	if strings.TrimSpace(name) == "" {
		return model.KeyEntry{}, ErrEmptyName
	}

	// Validation gates persistence: an invalid buffer never reaches the
	// backing location or the index.
	info, err := keyfile.Inspect(data)
	if err != nil {
		return model.KeyEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := rename(name, func(n string) bool {
		_, taken := s.entries[n]
		return taken
	})

	entry := model.KeyEntry{
		Name:      final,
		Algorithm: info.Algorithm,
		Data:      bytes.Clone(data),
	}

	persisted, err := s.backing.WriteKey(ctx, entry)
	if err != nil {
		return model.KeyEntry{}, wrapStorage("persist key "+final, err)
	}
	s.entries[final] = persisted
	return persisted.Clone(), nil
}

// Remove deletes the named entry from the backing location and the index
// together. A failed durable delete leaves the in-memory entry in place so
// the visible set never diverges from durable reality. Removing a name that
// does not exist is a no-op success.
func (s *Store) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; !ok {
		return nil
	}
	if err := s.backing.DeleteKey(ctx, name); err != nil {
		return wrapStorage("delete key "+name, err)
	}
	delete(s.entries, name)
	return nil
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
