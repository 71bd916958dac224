// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/toeirei/keychest/internal/i18n"
)

// importCmd imports one or more key files into the store. Each file is an
// independent add: a file that fails validation or persistence is reported
// and the batch continues.
var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Validate and import private key files",
	Long: `Validates each file as a private-key container (PEM, OpenSSH or PPK) and
persists it under its base filename. A name collision with an existing key
gets a unique suffixed name instead of overwriting. Extension filters in
file pickers are a convenience only; every file is fully validated here.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var failed int
		for _, path := range args {
			// A cancelled request mutates nothing further.
			if err := ctx.Err(); err != nil {
				fmt.Println(i18n.T("keys.import.cancelled"))
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				failed++
				fmt.Printf("%s %s: %v\n", i18n.T("keys.import.failed"), path, err)
				continue
			}

			entry, err := credStore.Import(ctx, filepath.Base(path), data)
			if err != nil {
				failed++
				fmt.Printf("%s %s: %v\n", i18n.T("keys.import.failed"), path, err)
				continue
			}
			fmt.Printf("%s %s\n", i18n.T("keys.import.success"), entry.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files were not imported", failed, len(args))
		}
		return nil
	},
}

// listCmd prints all stored keys sorted by name.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		if credStore.Len() == 0 {
			fmt.Println(i18n.T("keys.list.empty"))
			return nil
		}
		entries := credStore.List()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			i18n.T("keys.list.header.name"),
			i18n.T("keys.list.header.algorithm"),
			i18n.T("keys.list.header.created"))
		for _, e := range entries {
			alg := e.Algorithm
			if alg == "" {
				alg = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, alg, e.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

// showCmd prints details for a single key and can write its raw content to
// a file.
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details for a stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, ok := credStore.Lookup(args[0])
		if !ok {
			return fmt.Errorf("%s", i18n.T("keys.show.not_found"))
		}

		fmt.Printf("Name:      %s\n", entry.Name)
		if entry.Algorithm != "" {
			fmt.Printf("Algorithm: %s\n", entry.Algorithm)
		}
		fmt.Printf("Size:      %d bytes\n", len(entry.Data))
		fmt.Printf("Created:   %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := WriteKeyFile(out, entry.Data); err != nil {
				return fmt.Errorf("failed to write key file: %w", err)
			}
			fmt.Printf("Written:   %s\n", out)
		}
		return nil
	},
}

// deleteCmd removes a key from the store. Removing a name that does not
// exist succeeds quietly.
var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		if _, exists := credStore.Lookup(name); exists && !assumeYes {
			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Print(i18n.T("keys.delete.confirm"))
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				answer := strings.ToLower(strings.TrimSpace(line))
				if answer != "y" && answer != "yes" {
					fmt.Println(i18n.T("keys.delete.aborted"))
					return nil
				}
			}
		}

		if err := credStore.Remove(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Println(i18n.T("keys.delete.success"))
		return nil
	},
}

func init() {
	showCmd.Flags().String("out", "", "write the raw key content to this file")
	deleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
}
