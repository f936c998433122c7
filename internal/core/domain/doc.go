// Package domain defines the value types exchanged between the wazuh-cli core
// and its callers.
//
// Types here carry no IO and no framework coupling:
//
//   - Token: bearer credential with its lifetime
//   - Agent, AgentList, AddedAgent, AgentKey: agent records
//   - ServiceStatus, ManagerInfo: manager records
//   - BatchResult: per-target outcome of a fan-out operation
//   - Error: the error taxonomy returned by the core
//
// Local input validation (agent IDs, names, versions) also lives here so it
// can run before any request is built.
package domain
