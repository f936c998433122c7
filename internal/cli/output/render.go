package output

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// AgentsTable lays out an agent listing.
func (p *Printer) AgentsTable(agents []domain.Agent) *Table {
	t := &Table{Headers: []string{"ID", "NAME", "IP", "STATUS", "OS", "VERSION", "LAST KEEPALIVE"}}
	for _, a := range agents {
		t.AddRow(a.ID, orDash(a.Name), orDash(a.IP), a.Status.Label(), osName(a.OS), orDash(a.Version), timeOrDash(a.LastKeepAlive))
	}
	t.Style = func(row, col int, cell string) string {
		if col != 3 {
			return cell
		}
		return p.Paint(statusColor(agents[row].Status), cell)
	}
	return t
}

// AgentTable lays out one agent as field/value rows.
func (p *Printer) AgentTable(a domain.Agent) *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("ID", a.ID)
	t.AddRow("Name", orDash(a.Name))
	t.AddRow("IP", orDash(a.IP))
	t.AddRow("Status", p.Paint(statusColor(a.Status), a.Status.Label()))
	t.AddRow("OS", osName(a.OS))
	t.AddRow("Version", orDash(a.Version))
	t.AddRow("Groups", orDash(strings.Join(a.Group, ",")))
	t.AddRow("Node", orDash(a.NodeName))
	t.AddRow("Registered", timeOrDash(a.DateAdd))
	t.AddRow("Last keepalive", timeOrDash(a.LastKeepAlive))
	return t
}

// ServicesTable lays out the manager daemon states.
func (p *Printer) ServicesTable(services []domain.ServiceStatus) *Table {
	t := &Table{Headers: []string{"SERVICE", "STATUS"}}
	for _, s := range services {
		t.AddRow(s.Name, string(s.State))
	}
	t.Style = func(row, col int, cell string) string {
		if col != 1 {
			return cell
		}
		switch services[row].State {
		case domain.ServiceRunning:
			return p.Paint(ColorGreen, cell)
		case domain.ServiceStopped:
			return p.Paint(ColorRed, cell)
		default:
			return p.Paint(ColorYellow, cell)
		}
	}
	return t
}

// ManagerInfoTable lays out the manager installation details.
func (p *Printer) ManagerInfoTable(info domain.ManagerInfo) *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("Name", orDash(info.Name))
	t.AddRow("Version", orDash(info.Version))
	t.AddRow("Type", orDash(info.Type))
	t.AddRow("Path", orDash(info.Path))
	t.AddRow("Compiled", orDash(info.CompilationDate))
	if info.MaxAgents != nil {
		t.AddRow("Max agents", fmt.Sprint(info.MaxAgents))
	}
	t.AddRow("Timezone", orDash(strings.TrimSpace(info.TZName+" "+info.TZOffset)))
	if info.Cluster.Enabled {
		t.AddRow("Cluster", fmt.Sprintf("%s (%s)", info.Cluster.NodeName, info.Cluster.NodeType))
	} else {
		t.AddRow("Cluster", "disabled")
	}
	return t
}

// BatchTable lays out per-target outcomes in input order.
func (p *Printer) BatchTable(result domain.BatchResult) *Table {
	t := &Table{Headers: []string{"TARGET", "RESULT", "DETAIL"}}
	for _, it := range result.Items {
		if it.OK() {
			t.AddRow(it.Target, "ok", "-")
			continue
		}
		t.AddRow(it.Target, "failed", ErrorMessage(it.Err))
	}
	t.Style = func(row, col int, cell string) string {
		if col != 1 {
			return cell
		}
		if result.Items[row].OK() {
			return p.Paint(ColorGreen, cell)
		}
		return p.Paint(ColorRed, cell)
	}
	return t
}

// BatchReport is the machine-readable form of a BatchResult.
type BatchReport struct {
	Op        string            `json:"op" yaml:"op"`
	Total     int               `json:"total" yaml:"total"`
	Succeeded int               `json:"succeeded" yaml:"succeeded"`
	Failed    int               `json:"failed" yaml:"failed"`
	Items     []BatchReportItem `json:"items" yaml:"items"`
}

// BatchReportItem is one target of a BatchReport.
type BatchReportItem struct {
	Target string `json:"target" yaml:"target"`
	OK     bool   `json:"ok" yaml:"ok"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// NewBatchReport converts a result for JSON or YAML output.
func NewBatchReport(result domain.BatchResult) BatchReport {
	r := BatchReport{Op: result.Op, Total: len(result.Items), Items: make([]BatchReportItem, len(result.Items))}
	for i, it := range result.Items {
		r.Items[i] = BatchReportItem{Target: it.Target, OK: it.OK()}
		if it.OK() {
			r.Succeeded++
			continue
		}
		r.Failed++
		r.Items[i].Error = ErrorMessage(it.Err)
		r.Items[i].Kind = string(domain.KindOf(it.Err))
	}
	return r
}

// ErrorMessage renders err for a user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ErrorHint suggests a next step for common failures.
func ErrorHint(err error) string {
	switch domain.KindOf(err) {
	case domain.KindAuth:
		return "check auth.username and auth.password (config show)"
	case domain.KindNetwork:
		if strings.Contains(ErrorMessage(err), "certificate") {
			return "set tls.ca_cert, or use --insecure for a self-signed manager"
		}
		return "check api.host, api.port and api.protocol (config show)"
	case domain.KindExhausted:
		return "the manager kept failing; try again later"
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "list agents with: agent list"
	}
	return ""
}

func statusColor(s domain.AgentStatus) string {
	switch s {
	case domain.AgentActive:
		return ColorGreen
	case domain.AgentDisconnected:
		return ColorRed
	case domain.AgentPending:
		return ColorYellow
	default:
		return ColorGray
	}
}

func osName(o *domain.AgentOS) string {
	if o == nil {
		return "-"
	}
	name := strings.TrimSpace(o.Name + " " + o.Version)
	if name == "" {
		name = o.Platform
	}
	return orDash(name)
}

func timeOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return FormatTime(*t)
}
