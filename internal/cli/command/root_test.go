package command

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitError},
		{"validation", domain.Validationf("bad"), ExitValidation},
		{"auth", &domain.Error{Kind: domain.KindAuth}, ExitAuth},
		{"network", &domain.Error{Kind: domain.KindNetwork}, ExitNetwork},
		{"exhausted", &domain.Error{Kind: domain.KindExhausted, Attempts: 3}, ExitNetwork},
		{"api", &domain.Error{Kind: domain.KindAPI, Status: 404}, ExitAPI},
		{"canceled kind", &domain.Error{Kind: domain.KindCanceled}, ExitCanceled},
		{"context canceled", fmt.Errorf("list: %w", context.Canceled), ExitCanceled},
		{"wrapped", fmt.Errorf("outer: %w", &domain.Error{Kind: domain.KindAuth}), ExitAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	env := newCLIEnv(t, nil)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"top level", []string{"wazuh-cli", "agnet"}, `unknown command "agnet"`},
		{"subcommand", []string{"wazuh-cli", "control", "stop"}, `unknown command "stop"`},
		{"config subcommand", []string{"wazuh-cli", "config", "delete"}, `unknown command "delete"`},
		{"unknown flag", []string{"wazuh-cli", "--bogus", "version"}, "--help"},
		{"bad output", []string{"wazuh-cli", "-o", "xml", "version"}, "xml"},
		{"bad log level", []string{"wazuh-cli", "--log-level", "loud", "version"}, "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.runRaw("", tt.args...)
			if res.code != ExitValidation {
				t.Errorf("exit code = %d, want %d (stderr = %s)", res.code, ExitValidation, res.stderr)
			}
			if !strings.Contains(res.stderr, tt.want) {
				t.Errorf("stderr missing %q: %s", tt.want, res.stderr)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	env := newCLIEnv(t, nil)

	res := env.runRaw("", "wazuh-cli", "--help")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	for _, want := range []string{"wazuh-cli", "agent", "control", "config", "interactive"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("help missing %q:\n%s", want, res.stdout)
		}
	}

	res = env.runRaw("", "wazuh-cli", "agent")
	if res.code != ExitOK || !strings.Contains(res.stdout, "restart") {
		t.Errorf("group help: code = %d, stdout = %s", res.code, res.stdout)
	}
}

func TestRun_Version(t *testing.T) {
	env := newCLIEnv(t, nil)

	res := env.runRaw("", "wazuh-cli", "version")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	for _, want := range []string{"FIELD", "version", "platform"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}

	res = env.runRaw("", "wazuh-cli", "-j", "version")
	if res.code != ExitOK || !strings.HasPrefix(strings.TrimSpace(res.stdout), "{") {
		t.Errorf("json: code = %d, stdout = %s", res.code, res.stdout)
	}
}

func TestRun_AuthFailure(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("", "--password", "wrong", "agent", "list")
	if res.code != ExitAuth {
		t.Errorf("exit code = %d, want %d (stderr = %s)", res.code, ExitAuth, res.stderr)
	}
	if !strings.Contains(res.stderr, "check auth.username and auth.password") {
		t.Errorf("stderr = %s", res.stderr)
	}
	if strings.Contains(res.stderr, "wrong") {
		t.Error("password leaked into the error output")
	}
}

func TestRun_MissingPassword(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	u, _ := url.Parse(m.URL)
	res := env.runRaw("", "wazuh-cli", "--config", env.config,
		"--host", u.Hostname(), "--port", u.Port(), "--protocol", "http", "--user", "wazuh",
		"agent", "list")
	if res.code != ExitValidation || !strings.Contains(res.stderr, "password required") {
		t.Errorf("code = %d, stderr = %s", res.code, res.stderr)
	}
	if m.logins.Load() != 0 {
		t.Errorf("logins = %d, want 0", m.logins.Load())
	}
}

func TestRun_PasswordFromEnv(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)
	t.Setenv("WAZUH_PASSWORD", "wazuh")

	u, _ := url.Parse(m.URL)
	res := env.runRaw("", "wazuh-cli", "--config", env.config,
		"--host", u.Hostname(), "--port", u.Port(), "--protocol", "http", "--user", "wazuh",
		"agent", "get", "001")
	if res.code != ExitOK {
		t.Errorf("code = %d, stderr = %s", res.code, res.stderr)
	}
}

func TestRun_ManagerUnreachable(t *testing.T) {
	down := httptest.NewServer(nil)
	u, _ := url.Parse(down.URL)
	down.Close()

	env := newCLIEnv(t, nil)
	t.Setenv("WAZUH_API_MAX_RETRIES", "1")

	res := env.runRaw("", "wazuh-cli", "--config", env.config,
		"--host", u.Hostname(), "--port", u.Port(), "--protocol", "http",
		"--user", "wazuh", "--password", "wazuh", "control", "info")
	if res.code != ExitAuth || !strings.Contains(res.stderr, "credential exchange failed") {
		t.Errorf("exit code = %d, want %d (stderr = %s)", res.code, ExitAuth, res.stderr)
	}
}

func TestRun_MetricsFile(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)
	path := filepath.Join(t.TempDir(), "wazuh-cli.prom")

	res := env.run("", "--metrics-file", path, "agent", "restart", "001,003")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"wazuh_cli_transport_requests_total", "wazuh_cli_session_auth_exchanges_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics file missing %s:\n%s", want, data)
		}
	}
}

func TestRun_Interactive(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	input := strings.Join([]string{
		"agent list",
		"session",
		"stats",
		"agent remove 004",
		"y",
		"agnet list",
		"interactive",
		"exit",
	}, "\n") + "\n"

	res := env.run(input, "interactive")
	if res.code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %s", res.code, res.stderr)
	}
	for _, want := range []string{
		"Type 'help' for commands",
		"Showing 4 of 4 agents",
		"valid",
		"wazuh_cli_transport_requests_total",
		"Agent 004 removed",
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	for _, want := range []string{"Did you mean: agent", "already in interactive mode"} {
		if !strings.Contains(res.stdout+res.stderr, want) {
			t.Errorf("output missing %q:\n%s\n%s", want, res.stdout, res.stderr)
		}
	}
	if m.logins.Load() != 1 {
		t.Errorf("logins = %d, the shell shares one session", m.logins.Load())
	}

	history, err := os.ReadFile(filepath.Join(env.home, ".wazuh-cli", "history"))
	if err != nil {
		t.Fatalf("history not saved: %v", err)
	}
	if !strings.Contains(string(history), "agent remove 004") {
		t.Errorf("history = %q", history)
	}
	if strings.Contains(string(history), "\ny\n") {
		t.Errorf("confirmation answers must not be recorded: %q", history)
	}
}

func TestRun_NoArgsStartsShell(t *testing.T) {
	m := newMockServer(t)
	env := newCLIEnv(t, m)

	res := env.run("control status cluster\nquit\n")
	if res.code != ExitOK || !strings.Contains(res.stdout, "wazuh-clusterd") {
		t.Errorf("code = %d, stdout = %s, stderr = %s", res.code, res.stdout, res.stderr)
	}
}
