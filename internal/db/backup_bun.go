// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/toeirei/keychest/internal/model"
	"github.com/uptrace/bun"
)

// backupSchemaVersion identifies the layout of BackupData payloads written
// by this build. Bump when the backup structure changes shape.
const backupSchemaVersion = 1

// ExportDataForBackupBun reads all tables inside one transaction so the
// backup is a consistent snapshot.
func ExportDataForBackupBun(ctx context.Context, bdb *bun.DB) (*model.BackupData, error) {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var keyRows []KeyModel
	if err := tx.NewSelect().Model(&keyRows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to export keys: %w", err)
	}
	var auditRows []AuditLogModel
	if err := tx.NewSelect().Model(&auditRows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to export audit log: %w", err)
	}

	backup := &model.BackupData{SchemaVersion: backupSchemaVersion}
	for _, r := range keyRows {
		backup.Keys = append(backup.Keys, keyModelToModel(r))
	}
	for _, r := range auditRows {
		backup.AuditLogEntries = append(backup.AuditLogEntries, auditLogModelToModel(r))
	}
	return backup, tx.Commit()
}

// ImportDataFromBackupBun performs a full wipe-and-replace restore within a
// single transaction to ensure atomicity.
func ImportDataFromBackupBun(ctx context.Context, bdb *bun.DB, backup *model.BackupData) error {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Bun requires a WHERE clause on deletes; raw statements express the
	// full-table wipe directly.
	if _, err := ExecRaw(ctx, tx, "DELETE FROM keys"); err != nil {
		return fmt.Errorf("failed to clear keys table: %w", err)
	}
	if _, err := ExecRaw(ctx, tx, "DELETE FROM audit_log"); err != nil {
		return fmt.Errorf("failed to clear audit_log table: %w", err)
	}

	for _, k := range backup.Keys {
		row := KeyModel{Name: k.Name, Algorithm: k.Algorithm, Data: k.Data, CreatedAt: k.CreatedAt}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to restore key %q: %w", k.Name, err))
		}
	}
	for _, a := range backup.AuditLogEntries {
		row := AuditLogModel{Timestamp: a.Timestamp, Action: a.Action, Details: a.Details}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to restore audit entry: %w", err)
		}
	}

	return tx.Commit()
}

// IntegrateDataFromBackupBun restores keys from a backup non-destructively,
// skipping names that already exist. The audit log is left untouched; the
// integration itself is recorded by the caller.
func IntegrateDataFromBackupBun(ctx context.Context, bdb *bun.DB, backup *model.BackupData) error {
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range backup.Keys {
		exists, err := tx.NewSelect().Model((*KeyModel)(nil)).Where("name = ?", k.Name).Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check key %q: %w", k.Name, err)
		}
		if exists {
			continue
		}
		row := KeyModel{Name: k.Name, Algorithm: k.Algorithm, Data: k.Data, CreatedAt: k.CreatedAt}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return MapDBError(fmt.Errorf("failed to integrate key %q: %w", k.Name, err))
		}
	}

	return tx.Commit()
}
