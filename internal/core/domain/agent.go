package domain

import "time"

// AgentStatus is the connection status reported for an agent.
type AgentStatus string

const (
	AgentActive         AgentStatus = "active"
	AgentDisconnected   AgentStatus = "disconnected"
	AgentNeverConnected AgentStatus = "never_connected"
	AgentPending        AgentStatus = "pending"
)

// Label returns the display form of the status.
func (s AgentStatus) Label() string {
	switch s {
	case AgentActive:
		return "Active"
	case AgentDisconnected:
		return "Disconnected"
	case AgentNeverConnected:
		return "Never Connected"
	case AgentPending:
		return "Pending"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentActive, AgentDisconnected, AgentNeverConnected, AgentPending:
		return true
	}
	return false
}

// ManagerAgentID is the ID the manager registers itself under.
const ManagerAgentID = "000"

// Agent is a monitored endpoint.
type Agent struct {
	ID            string      `json:"id" yaml:"id"`
	Name          string      `json:"name" yaml:"name"`
	IP            string      `json:"ip,omitempty" yaml:"ip,omitempty"`
	Status        AgentStatus `json:"status" yaml:"status"`
	OS            *AgentOS    `json:"os,omitempty" yaml:"os,omitempty"`
	Version       string      `json:"version,omitempty" yaml:"version,omitempty"`
	LastKeepAlive *time.Time  `json:"lastKeepAlive,omitempty" yaml:"last_keep_alive,omitempty"`
	DateAdd       *time.Time  `json:"dateAdd,omitempty" yaml:"date_add,omitempty"`
	Group         []string    `json:"group,omitempty" yaml:"group,omitempty"`
	NodeName      string      `json:"node_name,omitempty" yaml:"node_name,omitempty"`
	Manager       string      `json:"manager,omitempty" yaml:"manager,omitempty"`
}

// AgentOS describes the operating system of an agent.
type AgentOS struct {
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Arch     string `json:"arch,omitempty" yaml:"arch,omitempty"`
	Major    string `json:"major,omitempty" yaml:"major,omitempty"`
	Minor    string `json:"minor,omitempty" yaml:"minor,omitempty"`
	Codename string `json:"codename,omitempty" yaml:"codename,omitempty"`
}

// AgentList is one page of agents plus the server-side total.
type AgentList struct {
	Items []Agent `json:"items" yaml:"items"`
	Total int     `json:"total" yaml:"total"`
}

// AgentFilter narrows an agent listing. Zero fields are not sent.
type AgentFilter struct {
	Status     AgentStatus
	OSPlatform string
	Version    string
	Group      string
	Search     string
	Query      string
	Sort       string
	Limit      int
	Offset     int
}

// DefaultAgentLimit is the page size used when a filter leaves Limit unset.
const DefaultAgentLimit = 500

// AddAgentRequest registers a new agent.
type AddAgentRequest struct {
	Name  string `json:"name"`
	IP    string `json:"ip,omitempty"`
	Force bool   `json:"-"`
}

// AddedAgent is the registration result of a new agent.
type AddedAgent struct {
	ID  string `json:"id" yaml:"id"`
	Key string `json:"key" yaml:"key"`
}

// AgentKey is the registration key of an existing agent.
type AgentKey struct {
	ID  string `json:"id" yaml:"id"`
	Key string `json:"key" yaml:"key"`
}

// UpgradeOptions controls an agent upgrade.
type UpgradeOptions struct {
	Version string
	Force   bool
}

// Ack acknowledges an action the manager accepted.
type Ack struct {
	Target  string `json:"target" yaml:"target"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}
