// Package shutdown coordinates process termination for wazuh-cli.
//
// One-shot commands run under a context cancelled by SIGINT or SIGTERM.
// Cleanup hooks (history flush, metrics textfile) run once at exit, in
// reverse registration order, bounded by a timeout.
//
// Usage:
//
//	ctx, stop := shutdown.WithSignals(context.Background())
//	defer stop()
package shutdown
