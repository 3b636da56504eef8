// Package main provides the sales assistant CLI entrypoint.
package main

import (
	"os"

	"github.com/bigdipper/sales-assistant/cmd/assistant-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
