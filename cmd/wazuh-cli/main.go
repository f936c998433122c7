// Package main provides the entry point for wazuh-cli.
//
// wazuh-cli is the command-line client for the Wazuh manager API,
// supporting both single-command mode and an interactive shell.
package main

import (
	"context"
	"os"

	"github.com/yndnr/wazuh-cli-go/internal/cli/command"
)

func main() {
	os.Exit(command.Run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}
