// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/toeirei/keychest/internal/model"
)

func TestCompressedBackup_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json.zst")

	in := &model.BackupData{
		SchemaVersion: 1,
		Keys: []model.KeyEntry{
			{ID: 1, Name: "id_ed25519", Algorithm: "ed25519", Data: []byte("blob-one"), CreatedAt: time.Now().UTC().Truncate(time.Second)},
			{ID: 2, Name: "deploy", Algorithm: "rsa", Data: []byte("blob-two")},
		},
		AuditLogEntries: []model.AuditLogEntry{
			{ID: 1, Action: "ADD_KEY", Details: "name: id_ed25519"},
		},
	}

	if err := writeCompressedBackup(path, in); err != nil {
		t.Fatalf("writeCompressedBackup failed: %v", err)
	}

	// The file on disk is zstd, not plain JSON.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading backup file failed: %v", err)
	}
	magic := []byte{0x28, 0xb5, 0x2f, 0xfd}
	if len(raw) < 4 || !bytes.Equal(raw[:4], magic) {
		t.Fatalf("backup file does not start with the zstd magic number")
	}

	out, err := readCompressedBackup(path)
	if err != nil {
		t.Fatalf("readCompressedBackup failed: %v", err)
	}
	if out.SchemaVersion != in.SchemaVersion || len(out.Keys) != 2 || len(out.AuditLogEntries) != 1 {
		t.Fatalf("round trip lost data: %+v", out)
	}
	if out.Keys[0].Name != "id_ed25519" || !bytes.Equal(out.Keys[0].Data, []byte("blob-one")) {
		t.Fatalf("unexpected first key after round trip: %+v", out.Keys[0])
	}
}

func TestReadCompressedBackup_Errors(t *testing.T) {
	if _, err := readCompressedBackup(filepath.Join(t.TempDir(), "missing.zst")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.zst")
	if err := os.WriteFile(garbage, []byte("definitely not zstd"), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := readCompressedBackup(garbage); err == nil {
		t.Fatalf("expected an error for a non-zstd file")
	}
}
