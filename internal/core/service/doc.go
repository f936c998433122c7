// Package service implements the Wazuh API operations on top of a session
// and a transport.
//
// This package contains:
//
//   - Dispatcher: token, transport and single re-authentication per call
//   - Agents: agent listing, registration, removal, restart, upgrade and keys
//   - Manager: manager status, info and restart
//   - Batch: bounded, paced fan-out of one operation over many agents
//
// Operations validate their input before any request is built, so a
// validation error never reaches the network. Services hold no state
// beyond their dependencies and are safe for concurrent use.
package service
