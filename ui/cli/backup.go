// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/toeirei/keychest/internal/i18n"
	"github.com/toeirei/keychest/internal/model"
	"github.com/toeirei/keychest/internal/store"
)

// backupCmd writes a zstd-compressed JSON snapshot of the whole store.
var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Create a compressed (zstd) JSON backup of the key store",
	Long: `Exports all keys and the audit log into a Zstandard-compressed JSON file.
If no output file is specified, a default filename
'keychest-backup-YYYY-MM-DD.json.zst' is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := fmt.Sprintf("keychest-backup-%s.json.zst", time.Now().Format("2006-01-02"))
		if len(args) == 1 {
			filename = args[0]
			if !strings.HasSuffix(filename, ".zst") {
				filename += ".zst"
			}
		}

		backup, err := backing.ExportDataForBackup(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not export data: %w", err)
		}

		if err := writeCompressedBackup(filename, backup); err != nil {
			return err
		}
		_ = backing.LogAction(cmd.Context(), "BACKUP", fmt.Sprintf("file: %s", filename))
		fmt.Printf("%s %s\n", i18n.T("backup.success"), filename)
		return nil
	},
}

// restoreCmd restores the store from a compressed JSON backup file. The
// default mode integrates missing keys; --full wipes and replaces
// everything in one transaction.
var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file.zst>",
	Short: "Restore the key store from a compressed JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backup, err := readCompressedBackup(args[0])
		if err != nil {
			return err
		}

		if fullRestore {
			err = backing.ImportDataFromBackup(cmd.Context(), backup)
		} else {
			err = backing.IntegrateDataFromBackup(cmd.Context(), backup)
		}
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		_ = backing.LogAction(cmd.Context(), "RESTORE", fmt.Sprintf("file: %s, full: %t", args[0], fullRestore))

		// The in-memory index predates the restore; rebuild it from the
		// backing so the running process sees the restored set.
		credStore, err = store.New(cmd.Context(), backing)
		if err != nil {
			return fmt.Errorf("failed to reload key store after restore: %w", err)
		}
		fmt.Println(i18n.T("restore.success"))
		return nil
	},
}

// auditCmd prints the audit trail, most recent first.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := backing.GetAllAuditLogEntries(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read audit log: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println(i18n.T("audit.empty"))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Details)
		}
		return w.Flush()
	},
}

// writeCompressedBackup encodes the backup as JSON through a zstd writer.
func writeCompressedBackup(filename string, backup *model.BackupData) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(backup); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode backup json: %w", err)
	}
	return zw.Close()
}

// readCompressedBackup handles reading and decoding a zstd-compressed JSON backup file.
func readCompressedBackup(filename string) (*model.BackupData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zr, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var backup model.BackupData
	if err := json.NewDecoder(zr).Decode(&backup); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &backup, nil
}

func init() {
	restoreCmd.Flags().BoolVar(&fullRestore, "full", false, "wipe existing data and replace it with the backup contents")
}
