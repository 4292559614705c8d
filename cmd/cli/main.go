// Package main is the entry point for the showplane CLI.
// The CLI is the operator tool for running and verifying raffles and
// managing the database schema.
package main

import (
	"os"

	"showplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
