// Package repl provides the interactive shell of wazuh-cli.
//
//   - repl.go: the loop (prompt, execute, render) and interrupt handling
//   - args.go: shell-style splitting of input lines
//   - completer.go: command completion and "did you mean" suggestions
//   - history.go: bounded, persisted command history
//
// Lines are executed by an Executor that re-runs the command tree against
// the same session, so one login serves the whole shell.
package repl
