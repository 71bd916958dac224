// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Keychest.
//
// Usage:
//
//	go run . [flags]
//	./keychest [flags]
//
// This launches the Keychest CLI. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/keychest/internal/logging"
	"github.com/toeirei/keychest/ui/cli"
)

// main is the entrypoint for the Keychest CLI.
func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("keychest: %v", err)
		os.Exit(1)
	}
}
