package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/toeirei/keychest/internal/keyfile"
	"github.com/toeirei/keychest/internal/model"
	"github.com/toeirei/keychest/internal/testutil"
)

// fakeBacking is an in-memory Backing with injectable failures, used to
// exercise the store's atomicity guarantees without a database.
type fakeBacking struct {
	blobs     map[string][]byte
	nextID    int
	failWrite error
	failDel   error
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{blobs: make(map[string][]byte)}
}

func (f *fakeBacking) ReadAllKeys(ctx context.Context) ([]model.KeyEntry, error) {
	var out []model.KeyEntry
	for name, data := range f.blobs {
		out = append(out, model.KeyEntry{Name: name, Data: bytes.Clone(data)})
	}
	return out, nil
}

func (f *fakeBacking) WriteKey(ctx context.Context, entry model.KeyEntry) (model.KeyEntry, error) {
	if f.failWrite != nil {
		return model.KeyEntry{}, f.failWrite
	}
	f.nextID++
	entry.ID = f.nextID
	f.blobs[entry.Name] = bytes.Clone(entry.Data)
	return entry, nil
}

func (f *fakeBacking) DeleteKey(ctx context.Context, name string) error {
	if f.failDel != nil {
		return f.failDel
	}
	delete(f.blobs, name)
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeBacking) {
	t.Helper()
	backing := newFakeBacking()
	s, err := New(context.Background(), backing)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, backing
}

func TestAdd_ThenListAndLookup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	entry, err := s.Add(ctx, "id_rsa", []byte(testutil.Ed25519Key))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.Name != "id_rsa" {
		t.Fatalf("expected name id_rsa, got %q", entry.Name)
	}

	entries := s.List()
	if len(entries) != 1 || entries[0].Name != "id_rsa" {
		t.Fatalf("unexpected list: %+v", entries)
	}
	got, ok := s.Lookup("id_rsa")
	if !ok || !bytes.Equal(got.Data, []byte(testutil.Ed25519Key)) {
		t.Fatalf("lookup returned wrong entry")
	}
}

func TestAdd_ValidationGate(t *testing.T) {
	s, backing := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "bad", []byte("this is not a key"))
	if !errors.Is(err, keyfile.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got: %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("invalid buffer must not change the visible set")
	}
	if len(backing.blobs) != 0 {
		t.Fatalf("invalid buffer must never create a durable artifact")
	}

	// 0-byte buffer, same gate.
	if _, err := s.Add(ctx, "empty", nil); !errors.Is(err, keyfile.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for empty buffer, got: %v", err)
	}
}

func TestAdd_EmptyNameRejected(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Add(context.Background(), "  ", []byte(testutil.Ed25519Key)); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got: %v", err)
	}
}

func TestAdd_AtomicReplace(t *testing.T) {
	s, backing := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "k", []byte(testutil.Ed25519Key)); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := s.Add(ctx, "k", []byte(testutil.ECKey)); err != nil {
		t.Fatalf("replacing add failed: %v", err)
	}

	entries := s.List()
	if len(entries) != 1 || entries[0].Name != "k" {
		t.Fatalf("expected exactly one entry named k, got: %+v", entries)
	}
	if !bytes.Equal(entries[0].Data, []byte(testutil.ECKey)) {
		t.Fatalf("replace must keep the newer content")
	}
	if len(backing.blobs) != 1 {
		t.Fatalf("old artifact left dangling in durable storage")
	}
}

func TestAdd_FailedWriteLeavesStateUntouched(t *testing.T) {
	s, backing := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "keep", []byte(testutil.Ed25519Key)); err != nil {
		t.Fatalf("setup add failed: %v", err)
	}

	backing.failWrite = fmt.Errorf("disk full")
	_, err := s.Add(ctx, "keep", []byte(testutil.ECKey))
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got: %v", err)
	}

	got, ok := s.Lookup("keep")
	if !ok || !bytes.Equal(got.Data, []byte(testutil.Ed25519Key)) {
		t.Fatalf("failed add must leave the previous entry visible")
	}
}

func TestImport_CollisionSafeNaming(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Import(ctx, "id_rsa", []byte(testutil.Ed25519Key))
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	second, err := s.Import(ctx, "id_rsa", []byte(testutil.ECKey))
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	if first.Name != "id_rsa" || second.Name != "id_rsa-2" {
		t.Fatalf("expected id_rsa and id_rsa-2, got %q and %q", first.Name, second.Name)
	}
	if len(s.List()) != 2 {
		t.Fatalf("import must not overwrite a distinct existing artifact")
	}
}

func TestRemove_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Remove(context.Background(), "missing"); err != nil {
		t.Fatalf("removing an absent name must be a no-op success, got: %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("list changed after no-op remove")
	}
}

func TestRemove_FailAtomic(t *testing.T) {
	s, backing := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "k", []byte(testutil.Ed25519Key)); err != nil {
		t.Fatalf("setup add failed: %v", err)
	}

	backing.failDel = fmt.Errorf("permission denied")
	err := s.Remove(ctx, "k")
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got: %v", err)
	}
	if _, ok := s.Lookup("k"); !ok {
		t.Fatalf("entry must remain visible after failed durable delete")
	}

	backing.failDel = nil
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := s.Lookup("k"); ok {
		t.Fatalf("entry still visible after successful remove")
	}
	if len(backing.blobs) != 0 {
		t.Fatalf("durable artifact still present after remove")
	}
}

func TestList_DeterministicOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.Add(ctx, name, []byte(testutil.Ed25519Key)); err != nil {
			t.Fatalf("add %s failed: %v", name, err)
		}
	}

	want := []string{"alpha", "mid", "zeta"}
	for i := 0; i < 3; i++ {
		entries := s.List()
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for j, e := range entries {
			if e.Name != want[j] {
				t.Fatalf("expected order %v, got %q at %d", want, e.Name, j)
			}
		}
	}
}

func TestList_SnapshotIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "k", []byte(testutil.Ed25519Key)); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	snapshot := s.List()
	snapshot[0].Data[0] = 'X'
	snapshot[0].Name = "mutated"

	got, ok := s.Lookup("k")
	if !ok {
		t.Fatalf("entry disappeared")
	}
	if !bytes.Equal(got.Data, []byte(testutil.Ed25519Key)) {
		t.Fatalf("mutating a snapshot must not reach the store's data")
	}
}

func TestNew_LoadsExistingEntries(t *testing.T) {
	backing := newFakeBacking()
	backing.blobs["preexisting"] = []byte(testutil.Ed25519Key)

	s, err := New(context.Background(), backing)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := s.Lookup("preexisting"); !ok {
		t.Fatalf("store must load the durable set at construction")
	}
}

func TestLifecycleScenario(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if s.Len() != 0 {
		t.Fatalf("fresh store should be empty, Len() = %d", s.Len())
	}

	if _, err := s.Add(ctx, "id_rsa", []byte(testutil.Ed25519Key)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	entries := s.List()
	if len(entries) != 1 || entries[0].Name != "id_rsa" {
		t.Fatalf("expected single id_rsa entry, got: %+v", entries)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d after add, want 1", s.Len())
	}

	if err := s.Remove(ctx, "id_rsa"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(s.List()) != 0 || s.Len() != 0 {
		t.Fatalf("expected empty store after remove")
	}
}
