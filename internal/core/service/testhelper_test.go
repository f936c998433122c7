package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/wazuh-cli-go/internal/cli/connection"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// mockServer is a minimal Wazuh manager API.
type mockServer struct {
	*httptest.Server
	mux *http.ServeMux

	mu     sync.Mutex
	agents map[string]domain.Agent

	logins atomic.Int32
	tokens atomic.Int32
	// revoked tokens are answered with 401.
	revoked sync.Map
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()

	m := &mockServer{
		mux: http.NewServeMux(),
		agents: map[string]domain.Agent{
			"000": {ID: "000", Name: "manager", Status: domain.AgentActive},
			"001": {ID: "001", Name: "web-01", IP: "10.0.0.1", Status: domain.AgentActive},
			"003": {ID: "003", Name: "db-01", IP: "10.0.0.3", Status: domain.AgentActive},
			"004": {ID: "004", Name: "old-01", Status: domain.AgentDisconnected},
		},
	}
	m.mux.HandleFunc("POST /security/user/authenticate", m.authenticate)
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/security/user/authenticate" {
			tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if _, bad := m.revoked.Load(tok); bad || tok == "" {
				jsonResponse(w, http.StatusUnauthorized, map[string]any{"title": "Unauthorized request", "detail": "Invalid token", "error": 6000})
				return
			}
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
	n := m.tokens.Add(1)
	jsonResponse(w, http.StatusOK, map[string]any{
		"data":  map[string]string{"token": "token-" + strconv.Itoa(int(n))},
		"error": 0,
	})
}

// handle registers a handler with a method and path pattern.
func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.mux.HandleFunc(pattern, handler)
}

// revokeAll makes every token issued so far invalid.
func (m *mockServer) revokeAll() {
	for i := int32(1); i <= m.tokens.Load(); i++ {
		m.revoked.Store("token-"+strconv.Itoa(int(i)), true)
	}
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
			"error": map[string]any{"code": 1701, "message": "Agent does not exist", "remediation": "Use GET /agents to list agents"},
			"id":    failed,
		})
	}
	code := 0
	if len(failed) > 0 {
		code = 1
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"affected_items":       affected,
			"total_affected_items": lenOf(affected),
			"failed_items":         failedItems,
			"total_failed_items":   len(failed),
		},
		"message": message,
		"error":   code,
	})
}

func lenOf(v any) int {
	switch x := v.(type) {
	case []string:
		return len(x)
	case []domain.Agent:
		return len(x)
	case []any:
		return len(x)
	default:
		return 0
	}
}

// newServices wires the real connection stack to the mock server.
func newServices(t *testing.T, m *mockServer) (*Agents, *Manager, *connection.SessionManager) {
	t.Helper()

	u, _ := url.Parse(m.URL)
	port, _ := strconv.Atoi(u.Port())
	cred := connection.Credential{Host: u.Hostname(), Port: port, Protocol: "http", Username: "wazuh", Password: "wazuh"}

	tr, err := connection.NewHTTPTransport(cred, connection.WithRetryPolicy(connection.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	t.Cleanup(tr.Close)

	sess := connection.NewSessionManager(connection.NewPasswordAuthenticator(tr, cred, 0))
	d := NewDispatcher(sess, tr)
	return NewAgents(d), NewManager(d), sess
}
