package domain

// ServiceState is the state of one manager daemon.
type ServiceState string

const (
	ServiceRunning ServiceState = "running"
	ServiceStopped ServiceState = "stopped"
	ServiceUnknown ServiceState = "unknown"
)

// ParseServiceState maps the API's free-form status to a ServiceState.
func ParseServiceState(s string) ServiceState {
	switch s {
	case "running", "Running", "RUNNING":
		return ServiceRunning
	case "stopped", "Stopped", "STOPPED":
		return ServiceStopped
	default:
		return ServiceUnknown
	}
}

// ServiceStatus is one row of the manager status report.
type ServiceStatus struct {
	Name  string       `json:"name" yaml:"name"`
	State ServiceState `json:"status" yaml:"status"`
}

// ManagerInfo describes the manager installation.
type ManagerInfo struct {
	Name            string      `json:"name" yaml:"name"`
	Version         string      `json:"version" yaml:"version"`
	CompilationDate string      `json:"compilation_date,omitempty" yaml:"compilation_date,omitempty"`
	Type            string      `json:"type,omitempty" yaml:"type,omitempty"`
	Path            string      `json:"path,omitempty" yaml:"path,omitempty"`
	MaxAgents       any         `json:"max_agents,omitempty" yaml:"max_agents,omitempty"`
	OpenSSLSupport  any         `json:"openssl_support,omitempty" yaml:"openssl_support,omitempty"`
	TZOffset        string      `json:"tz_offset,omitempty" yaml:"tz_offset,omitempty"`
	TZName          string      `json:"tz_name,omitempty" yaml:"tz_name,omitempty"`
	Cluster         ClusterInfo `json:"cluster" yaml:"cluster"`
}

// ClusterInfo is the cluster section of ManagerInfo.
type ClusterInfo struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	NodeName string `json:"node_name,omitempty" yaml:"node_name,omitempty"`
	NodeType string `json:"node_type,omitempty" yaml:"node_type,omitempty"`
}
