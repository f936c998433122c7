// Package connection manages the session with the Wazuh manager API.
//
// This package owns everything between a typed operation and the wire:
//
//   - credential.go: immutable endpoint and login material
//   - session.go: token lifecycle with single-flight refresh
//   - auth.go: the credential exchange and token lifetime parsing
//   - http.go: HTTPS transport with bounded retry
//   - retry.go: retry policy and backoff
//   - request.go: request and response values
//   - clock.go: injectable time source
//
// Nothing in this package logs. Failures are returned as *domain.Error and
// counted in the metric registry.
package connection
