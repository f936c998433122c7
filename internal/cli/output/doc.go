// Package output renders command results for wazuh-cli.
//
//   - formatter.go: Format and the Formatter factory
//   - table.go, json.go, yaml.go: the three formatters
//   - printer.go: Printer, which owns stdout/stderr, TTY detection and color
//   - render.go: table layouts for agents, services, batches and errors
//   - spinner.go, progress.go: feedback shown on a terminal only
//
// JSON and YAML output are machine-readable and never mixed with spinners
// or progress bars.
package output
