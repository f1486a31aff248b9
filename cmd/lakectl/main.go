// Package main is the entrypoint for the lakectl CLI.
// The CLI provides commands for table management, query execution,
// and system diagnostics against a lakequery gateway.
package main

import (
	"os"

	"github.com/canonica-labs/lakequery/internal/cli"
)

func main() {
	os.Exit(cli.New().Execute())
}
