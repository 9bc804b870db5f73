// Package main is the entry point for the incidentdesk admin CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/incidentdesk/cmd/deskctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
