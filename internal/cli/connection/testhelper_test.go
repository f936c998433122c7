package connection

import (
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manual clock. After fires immediately and advances the
// clock, recording each requested delay.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// credentialFor builds a Credential pointing at a test server URL.
func credentialFor(t *testing.T, rawURL string) Credential {
	t.Helper()

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return Credential{
		Host:     u.Hostname(),
		Port:     port,
		Protocol: u.Scheme,
		Username: "wazuh",
		Password: "wazuh",
	}
}

func newTestTransport(t *testing.T, rawURL string, clock Clock, opts ...TransportOption) *HTTPTransport {
	t.Helper()

	opts = append([]TransportOption{WithClock(clock)}, opts...)
	tr, err := NewHTTPTransport(credentialFor(t, rawURL), opts...)
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	t.Cleanup(tr.Close)
	return tr
}
