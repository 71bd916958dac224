// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for Keychest using the
// Cobra library. It defines the root command, loads configuration, opens
// the durable backing and composes the credential store that all
// subcommands share.
package cli

import (
	"errors"
	"fmt"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toeirei/keychest/buildvars"
	"github.com/toeirei/keychest/internal/config"
	"github.com/toeirei/keychest/internal/db"
	"github.com/toeirei/keychest/internal/i18n"
	"github.com/toeirei/keychest/internal/logging"
	"github.com/toeirei/keychest/internal/store"
)

var (
	cfgFile     string
	verbose     bool
	assumeYes   bool // --yes on delete/restore
	fullRestore bool // --full on restore

	appConfig config.Config

	// The composed services shared by subcommands. The store is created
	// once per process and injected everywhere; there is no package-level
	// singleton beyond this composition root.
	backing   *db.Backing
	credStore *store.Store

	// newBackingFunc allows tests to substitute the backing factory.
	newBackingFunc = db.New
)

// rootCmd is the base command for the Keychest CLI.
var rootCmd = &cobra.Command{
	Use:   "keychest",
	Short: "Manage the local store of SSH private keys",
	Long: `Keychest keeps a durable, deduplicated store of private keys used for
outbound SSH authentication. Key files are validated before they are
accepted, persisted uniquely by name, and listed in a stable order.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupDefaultServices,
}

// setupDefaultServices loads configuration, initializes i18n and logging,
// opens the durable backing and builds the credential store.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	var cfgPath *string
	if cfgFile != "" {
		cfgPath = &cfgFile
	}

	defaults := map[string]any{
		"database.type": "sqlite",
		"database.dsn":  "./keychest.db",
		"language":      "en",
	}

	var err error
	appConfig, err = config.LoadConfig[config.Config](cmd, defaults, cfgPath)
	// A "file not found" error is expected on first run; create a default
	// config so subsequent runs have a persisted file to inspect.
	if errors.As(err, &viper.ConfigFileNotFoundError{}) {
		if writeErr := config.WriteConfigFile(&appConfig, false); writeErr != nil {
			log.Warnf("could not write default config file: %v", writeErr)
		}
	} else if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	i18n.Init(appConfig.Language)
	if verbose || appConfig.Verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}

	backing, err = newBackingFunc(appConfig.Database.Type, appConfig.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open key storage: %w", err)
	}

	credStore, err = store.New(cmd.Context(), backing)
	if err != nil {
		return fmt.Errorf("failed to load key store: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = buildvars.VersionOrDefault("dev")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a keychest.yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		importCmd,
		listCmd,
		showCmd,
		deleteCmd,
		backupCmd,
		restoreCmd,
		auditCmd,
	)
}
