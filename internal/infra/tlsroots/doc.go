// Package tlsroots builds the TLS client configuration used to reach the
// manager API.
//
//   - roots.go: system roots plus a custom CA bundle
//   - client.go: client tls.Config from the tls.* settings
//   - keypair.go: mutual TLS client certificate, reloaded on change
package tlsroots
