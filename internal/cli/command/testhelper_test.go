package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// mockServer is a minimal Wazuh manager API.
type mockServer struct {
	*httptest.Server
	mux *http.ServeMux

	mu        sync.Mutex
	agents    map[string]domain.Agent
	restarted []string

	logins atomic.Int32
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()

	m := &mockServer{
		mux: http.NewServeMux(),
		agents: map[string]domain.Agent{
			"000": {ID: "000", Name: "manager", Status: domain.AgentActive},
			"001": {ID: "001", Name: "web-01", IP: "10.0.0.1", Status: domain.AgentActive, Version: "Wazuh v4.7.2"},
			"003": {ID: "003", Name: "db-01", IP: "10.0.0.3", Status: domain.AgentActive, Version: "Wazuh v4.7.2"},
			"004": {ID: "004", Name: "old-01", Status: domain.AgentDisconnected},
		},
	}
	m.mux.HandleFunc("POST /security/user/authenticate", m.authenticate)
	m.mux.HandleFunc("GET /agents", m.listAgents)
	m.mux.HandleFunc("POST /agents", m.addAgent)
	m.mux.HandleFunc("DELETE /agents", m.removeAgents)
	m.mux.HandleFunc("PUT /agents/{id}/restart", m.restartAgent)
	m.mux.HandleFunc("PUT /agents/upgrade", m.upgradeAgents)
	m.mux.HandleFunc("GET /agents/{id}/key", m.agentKey)
	m.mux.HandleFunc("GET /manager/status", func(w http.ResponseWriter, r *http.Request) {
		itemsResponse(w, "", []any{map[string]string{
			"wazuh-analysisd": "running",
			"wazuh-remoted":   "running",
			"wazuh-clusterd":  "stopped",
		}})
	})
	m.mux.HandleFunc("GET /manager/info", func(w http.ResponseWriter, r *http.Request) {
		itemsResponse(w, "", []any{map[string]any{
			"name":    "wazuh-manager",
			"version": "v4.7.2",
			"type":    "server",
			"cluster": map[string]any{"enabled": false},
		}})
	})
	m.mux.HandleFunc("PUT /manager/restart", func(w http.ResponseWriter, r *http.Request) {
		itemsResponse(w, "Restart request sent to all specified nodes", []any{map[string]string{"name": "node01"}})
	})

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/security/user/authenticate" && r.Header.Get("Authorization") != "Bearer token-1" {
			jsonResponse(w, http.StatusUnauthorized, map[string]any{"title": "Unauthorized request", "error": 6000})
			return
		}
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) authenticate(w http.ResponseWriter, r *http.Request) {
	m.logins.Add(1)
	user, pass, _ := r.BasicAuth()
	if user != "wazuh" || pass != "wazuh" {
		jsonResponse(w, http.StatusUnauthorized, map[string]any{"title": "Unauthorized request", "detail": "Invalid credentials"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]string{"token": "token-1"}, "error": 0})
}

func (m *mockServer) listAgents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []domain.Agent
	var missing []string
	if list := q.Get("agents_list"); list != "" {
		for _, id := range strings.Split(list, ",") {
			if a, ok := m.agents[id]; ok {
				items = append(items, a)
			} else {
				missing = append(missing, id)
			}
		}
		itemsResponse(w, "", items, missing...)
		return
	}

	for _, a := range m.agents {
		if s := q.Get("status"); s != "" && string(a.Status) != s {
			continue
		}
		items = append(items, a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	total := len(items)
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit < len(items) {
		items = items[:limit]
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"affected_items":       items,
			"total_affected_items": total,
			"failed_items":         []any{},
			"total_failed_items":   0,
		},
		"error": 0,
	})
}

func (m *mockServer) addAgent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.Name == body.Name {
			jsonResponse(w, http.StatusBadRequest, map[string]any{"title": "Bad Request", "detail": "Agent name already present", "error": 1705})
			return
		}
	}
	m.agents["005"] = domain.Agent{ID: "005", Name: body.Name, Status: domain.AgentNeverConnected}
	jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]string{"id": "005", "key": "MDA1IG5ldw=="}, "error": 0})
}

func (m *mockServer) removeAgents(w http.ResponseWriter, r *http.Request) {
	m.bulk(w, r.URL.Query().Get("agents_list"), func(id string) { delete(m.agents, id) })
}

func (m *mockServer) restartAgent(w http.ResponseWriter, r *http.Request) {
	m.bulk(w, r.PathValue("id"), func(id string) { m.restarted = append(m.restarted, id) })
}

func (m *mockServer) upgradeAgents(w http.ResponseWriter, r *http.Request) {
	m.bulk(w, r.URL.Query().Get("agents_list"), func(string) {})
}

func (m *mockServer) bulk(w http.ResponseWriter, list string, apply func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ok, missing []string
	for _, id := range strings.Split(list, ",") {
		if _, found := m.agents[id]; found {
			apply(id)
			ok = append(ok, id)
		} else {
			missing = append(missing, id)
		}
	}
	itemsResponse(w, "", ok, missing...)
}

func (m *mockServer) agentKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m.mu.Lock()
	_, found := m.agents[id]
	m.mu.Unlock()
	if !found {
		itemsResponse(w, "", []any{}, id)
		return
	}
	itemsResponse(w, "", []any{map[string]string{"id": id, "key": "a2V5LQ=="}})
}

func (m *mockServer) restartedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.restarted...)
	sort.Strings(out)
	return out
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// itemsResponse writes a bulk-action envelope. ids listed in failed are
// reported with code 1701.
func itemsResponse(w http.ResponseWriter, message string, affected any, failed ...string) {
	var failedItems []map[string]any
	if len(failed) > 0 {
		failedItems = append(failedItems, map[string]any{
			"error": map[string]any{"code": 1701, "message": "Agent does not exist"},
			"id":    failed,
		})
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"affected_items":     affected,
			"failed_items":       failedItems,
			"total_failed_items": len(failed),
		},
		"message": message,
		"error":   0,
	})
}

// result is the outcome of one CLI run.
type result struct {
	code   int
	stdout string
	stderr string
}

// cliEnv isolates a CLI run: HOME points to a temporary directory and the
// configuration file lives there.
type cliEnv struct {
	t      *testing.T
	server *mockServer
	home   string
	config string
}

func newCLIEnv(t *testing.T, server *mockServer) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"WAZUH_PASSWORD", "WAZUH_CONFIG", "WAZUH_METRICS_FILE", "WAZUH_API_HOST", "WAZUH_AUTH_USERNAME", "WAZUH_AUTH_PASSWORD"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return &cliEnv{t: t, server: server, home: home, config: filepath.Join(home, ".wazuh-cli", "config.yaml")}
}

// connFlags returns the global flags pointing at the mock server.
func (e *cliEnv) connFlags() []string {
	u, _ := url.Parse(e.server.URL)
	return []string{"--host", u.Hostname(), "--port", u.Port(), "--protocol", "http", "--user", "wazuh", "--password", "wazuh"}
}

// run executes the CLI with the mock server flags and stdin.
func (e *cliEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	full := append([]string{"wazuh-cli", "--config", e.config}, e.connFlags()...)
	return e.runRaw(stdin, append(full, args...)...)
}

// runRaw executes the CLI with exactly args.
func (e *cliEnv) runRaw(stdin string, args ...string) result {
	e.t.Helper()
	var out, errOut bytes.Buffer
	code := Run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}
