// Package metric provides Prometheus metrics for wazuh-cli.
//
// This package owns a private registry for the client:
//
//   - prometheus.go: Registry with transport, session and batch metrics
//   - collector.go: Collector exporting the live session state
//
// Metrics include:
//
//   - Request attempts and outcomes per method
//   - Request latency histograms
//   - Authentication exchanges and token refreshes
//   - Batch item results
//
// Nothing is served over HTTP. The registry is rendered by the interactive
// "stats" command and written in textfile-collector format with
// --metrics-file.
package metric
