// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/toeirei/keychest/internal/model"
	"github.com/uptrace/bun"
)

// KeyModel is a local mapping used by Bun for the keys table.
type KeyModel struct {
	bun.BaseModel `bun:"table:keys"`
	ID            int       `bun:"id,pk,autoincrement"`
	Name          string    `bun:"name"`
	Algorithm     string    `bun:"algorithm"`
	Data          []byte    `bun:"data"`
	CreatedAt     time.Time `bun:"created_at"`
}

// AuditLogModel is a local mapping used by Bun for the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

func keyModelToModel(k KeyModel) model.KeyEntry {
	return model.KeyEntry{
		ID:        k.ID,
		Name:      k.Name,
		Algorithm: k.Algorithm,
		Data:      k.Data,
		CreatedAt: k.CreatedAt,
	}
}

func auditLogModelToModel(a AuditLogModel) model.AuditLogEntry {
	return model.AuditLogEntry{
		ID:        a.ID,
		Timestamp: a.Timestamp,
		Action:    a.Action,
		Details:   a.Details,
	}
}

// GetAllKeysBun retrieves all key entries ordered by name.
func GetAllKeysBun(ctx context.Context, bdb *bun.DB) ([]model.KeyEntry, error) {
	var rows []KeyModel
	if err := bdb.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, err
	}
	keys := make([]model.KeyEntry, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, keyModelToModel(r))
	}
	return keys, nil
}

// GetKeyByNameBun retrieves a single key entry by its unique name.
// It returns (nil, nil) when no entry with that name exists.
func GetKeyByNameBun(ctx context.Context, bdb *bun.DB, name string) (*model.KeyEntry, error) {
	var row KeyModel
	err := bdb.NewSelect().Model(&row).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := keyModelToModel(row)
	return &m, nil
}

// PutKeyBun persists a key entry under its name, replacing any existing row
// with that name. Delete-then-insert inside one transaction keeps the
// replace atomic and portable across dialects, which differ in their upsert
// syntax.
func PutKeyBun(ctx context.Context, bdb *bun.DB, entry model.KeyEntry) (model.KeyEntry, error) {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return model.KeyEntry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NewDelete().Model((*KeyModel)(nil)).Where("name = ?", entry.Name).Exec(ctx); err != nil {
		return model.KeyEntry{}, fmt.Errorf("failed to clear existing key %q: %w", entry.Name, err)
	}

	row := KeyModel{
		Name:      entry.Name,
		Algorithm: entry.Algorithm,
		Data:      entry.Data,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
		return model.KeyEntry{}, MapDBError(fmt.Errorf("failed to insert key %q: %w", entry.Name, err))
	}

	if err := tx.Commit(); err != nil {
		return model.KeyEntry{}, err
	}
	return keyModelToModel(row), nil
}

// DeleteKeyBun removes the key row with the given name. Removing a name
// that does not exist is a no-op.
func DeleteKeyBun(ctx context.Context, bdb *bun.DB, name string) error {
	_, err := bdb.NewDelete().Model((*KeyModel)(nil)).Where("name = ?", name).Exec(ctx)
	return err
}

// LogActionBun records an audit trail event.
func LogActionBun(ctx context.Context, bdb *bun.DB, action, details string) error {
	row := AuditLogModel{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
	}
	_, err := bdb.NewInsert().Model(&row).Exec(ctx)
	return err
}

// GetAllAuditLogEntriesBun retrieves all audit entries, most recent first.
func GetAllAuditLogEntriesBun(ctx context.Context, bdb *bun.DB) ([]model.AuditLogEntry, error) {
	var rows []AuditLogModel
	if err := bdb.NewSelect().Model(&rows).Order("timestamp DESC").Order("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	entries := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, auditLogModelToModel(r))
	}
	return entries, nil
}
