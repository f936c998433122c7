// Package command provides CLI command definitions for wazuh-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command, global flags, mode detection
//   - runtime.go: Per-process state shared by every command
//   - agent.go: Agent subcommand group
//   - control.go: Manager control subcommand group
//   - config.go: Configuration subcommand group
//   - interactive.go: Interactive shell
//   - version.go: Build information
//   - exitcode.go: Error to exit status mapping
//
// Commands follow a consistent pattern of parsing flags,
// calling the appropriate service, and formatting output.
package command
