// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Keyring.
//
// Usage:
//
//	go run . [flags]
//	./keyring [command] [flags]
//
// Without a command the interactive key browser starts. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/keyring/ui/cli"
)

func main() {
	// cli.Execute has already printed the localized error line.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
