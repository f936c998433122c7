package command

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/yndnr/wazuh-cli-go/internal/cli/output"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

func TestAgentList(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "list")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	for _, want := range []string{"ID", "LAST KEEPALIVE", "web-01", "db-01", "Disconnected", "Showing 4 of 4 agents"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestAgentList_Aliases(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	for _, args := range [][]string{{"agents", "ls"}, {"a", "l"}} {
		res := env.run("", args...)
		if res.code != ExitOK || !strings.Contains(res.stdout, "web-01") {
			t.Errorf("%v: code = %d, stdout = %s", args, res.code, res.stdout)
		}
	}
}

func TestAgentList_JSON(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "--json", "agent", "list", "--status", "active")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}

	var list domain.AgentList
	if err := json.Unmarshal([]byte(res.stdout), &list); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	if list.Total != 3 || len(list.Items) != 3 {
		t.Errorf("list = %+v, want the 3 active agents", list)
	}
	if strings.Contains(res.stdout, "Showing") {
		t.Error("status lines must not be mixed into JSON output")
	}
}

func TestAgentList_Count(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "-o", "yaml", "agent", "list", "--count")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	if strings.TrimSpace(res.stdout) != "total: 4" {
		t.Errorf("stdout = %q, want total: 4", res.stdout)
	}
}

func TestAgentList_InvalidStatus(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "list", "--status", "sleeping")
	if res.code != ExitValidation {
		t.Errorf("exit code = %d, want %d", res.code, ExitValidation)
	}
	if !strings.Contains(res.stderr, "invalid status") {
		t.Errorf("stderr = %s", res.stderr)
	}
	if m.logins.Load() != 0 {
		t.Errorf("logins = %d, invalid input must not reach the API", m.logins.Load())
	}
}

func TestAgentGet(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{"found", []string{"agent", "get", "001"}, ExitOK, "web-01"},
		{"alias", []string{"agent", "show", "003"}, ExitOK, "db-01"},
		{"not found", []string{"agent", "info", "999"}, ExitAPI, "Hint: list agents with: agent list"},
		{"missing id", []string{"agent", "get"}, ExitValidation, "usage:"},
		{"bad id", []string{"agent", "get", "abc"}, ExitValidation, "invalid agent ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run("", tt.args...)
			if res.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr = %s)", res.code, tt.wantCode, res.stderr)
			}
			if !strings.Contains(res.stdout+res.stderr, tt.want) {
				t.Errorf("output missing %q:\n%s%s", tt.want, res.stdout, res.stderr)
			}
		})
	}
}

func TestAgentAdd(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "add", "--name", "new-01", "--ip", "10.0.0.5")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "registered with ID 005") || !strings.Contains(res.stdout, "MDA1IG5ldw==") {
		t.Errorf("stdout = %s", res.stdout)
	}

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"duplicate", []string{"agent", "create", "--name", "web-01"}, ExitAPI},
		{"missing name", []string{"agent", "new"}, ExitValidation},
		{"bad name", []string{"agent", "add", "--name", "bad name!"}, ExitValidation},
		{"bad ip", []string{"agent", "add", "--name", "x-01", "--ip", "300.1.1.1"}, ExitValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := env.run("", tt.args...); res.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr = %s)", res.code, tt.wantCode, res.stderr)
			}
		})
	}
}

func TestAgentRemove_Confirmation(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("n\n", "agent", "remove", "004")
	if res.code != ExitOK || !strings.Contains(res.stderr, "Remove agent 004? [y/N]") || !strings.Contains(res.stderr, "Aborted.") {
		t.Errorf("declined: code = %d, stderr = %s", res.code, res.stderr)
	}
	if _, ok := m.agents["004"]; !ok {
		t.Fatal("declined removal deleted the agent")
	}

	res = env.run("", "agent", "rm", "004")
	if res.code != ExitOK || !strings.Contains(res.stderr, "Aborted.") {
		t.Errorf("end of input must decline: code = %d, stderr = %s", res.code, res.stderr)
	}

	res = env.run("yes\n", "agent", "delete", "004")
	if res.code != ExitOK || !strings.Contains(res.stdout, "Agent 004 removed") {
		t.Errorf("confirmed: code = %d, stdout = %s, stderr = %s", res.code, res.stdout, res.stderr)
	}
	if _, ok := m.agents["004"]; ok {
		t.Error("confirmed removal kept the agent")
	}
}

func TestAgentRemove_Many(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "del", "--yes", "001", "003")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "2 of 2 succeeded") {
		t.Errorf("stdout = %s", res.stdout)
	}

	if res := env.run("", "agent", "remove", "--yes", "000"); res.code != ExitValidation {
		t.Errorf("removing the manager: exit code = %d, want %d", res.code, ExitValidation)
	}
}

func TestAgentRestart(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "restart", "001")
	if res.code != ExitOK || !strings.Contains(res.stdout, "Restart sent to agent 001") {
		t.Errorf("single: code = %d, stdout = %s, stderr = %s", res.code, res.stdout, res.stderr)
	}

	if res := env.run("", "agent", "restart"); res.code != ExitValidation {
		t.Errorf("no target: exit code = %d, want %d", res.code, ExitValidation)
	}
}

func TestAgentRestart_BatchPartialFailure(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "restart", "001,002", "003")
	if res.code != ExitAPI {
		t.Errorf("exit code = %d, want %d", res.code, ExitAPI)
	}

	lines := strings.Split(res.stdout, "\n")
	var targets []string
	for _, line := range lines[1:] {
		if f := strings.Fields(line); len(f) >= 2 && strings.HasPrefix(f[0], "00") {
			targets = append(targets, f[0]+":"+f[1])
		}
	}
	if got := strings.Join(targets, ","); got != "001:ok,002:failed,003:ok" {
		t.Errorf("rows = %s, want input order with 002 failed\n%s", got, res.stdout)
	}
	if !strings.Contains(res.stdout, "2 of 3 succeeded") || !strings.Contains(res.stderr, "1 of 3 targets failed") {
		t.Errorf("stdout = %s\nstderr = %s", res.stdout, res.stderr)
	}
	if got := strings.Join(m.restartedIDs(), ","); got != "001,003" {
		t.Errorf("restarted = %s", got)
	}
	if m.logins.Load() != 1 {
		t.Errorf("logins = %d, a batch shares one session", m.logins.Load())
	}
}

func TestAgentRestart_AllJSON(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "-o", "json", "agent", "restart", "all")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}

	var report output.BatchReport
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	if report.Op != "agent.restart" || report.Total != 2 || report.Succeeded != 2 {
		t.Errorf("report = %+v", report)
	}
	if got := strings.Join(m.restartedIDs(), ","); got != "001,003" {
		t.Errorf("restarted = %s, want the active agents without the manager", got)
	}
}

func TestAgentUpgrade(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{"single", []string{"agent", "upgrade", "--version", "v4.8.0", "001"}, ExitOK, "Upgrade started on agent 001"},
		{"all", []string{"agent", "upgrade", "--force", "all"}, ExitOK, "2 of 2 succeeded"},
		{"bad version", []string{"agent", "upgrade", "--version", "4.8", "001"}, ExitValidation, "invalid version"},
		{"missing agent", []string{"agent", "upgrade", "001", "009"}, ExitAPI, "1 of 2 succeeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run("", tt.args...)
			if res.code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr = %s)", res.code, tt.wantCode, res.stderr)
			}
			if !strings.Contains(res.stdout+res.stderr, tt.want) {
				t.Errorf("output missing %q:\n%s%s", tt.want, res.stdout, res.stderr)
			}
		})
	}
}

func TestAgentKey(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "key", "001")
	if res.code != ExitOK || !strings.Contains(res.stdout, "a2V5LQ==") {
		t.Errorf("code = %d, stdout = %s, stderr = %s", res.code, res.stdout, res.stderr)
	}

	if res := env.run("", "agent", "key", "009"); res.code != ExitAPI {
		t.Errorf("missing agent: exit code = %d, want %d", res.code, ExitAPI)
	}
}

func TestAgent_UnknownSubcommand(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "agent", "reboot")
	if res.code != ExitValidation || !strings.Contains(res.stderr, `unknown command "reboot"`) {
		t.Errorf("code = %d, stderr = %s", res.code, res.stderr)
	}
}
