package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/metric"
)

// fakeAuth issues sequential tokens with a fixed lifetime. When gate is
// set each exchange blocks until it is closed or the context ends.
type fakeAuth struct {
	clock    *fakeClock
	lifetime time.Duration
	gate     chan struct{}
	entered  chan struct{}
	fail     error

	calls atomic.Int32
}

func (a *fakeAuth) Authenticate(ctx context.Context) (domain.Token, error) {
	n := a.calls.Add(1)
	if a.entered != nil {
		a.entered <- struct{}{}
	}
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return domain.Token{}, ctx.Err()
		}
	}
	if a.fail != nil {
		return domain.Token{}, a.fail
	}
	now := a.clock.Now()
	return domain.Token{
		Value:     fmt.Sprintf("token-%d", n),
		IssuedAt:  now,
		ExpiresAt: now.Add(a.lifetime),
	}, nil
}

func newTestSession(clock *fakeClock, auth Authenticator, opts ...SessionOption) *SessionManager {
	return NewSessionManager(auth, append([]SessionOption{WithSessionClock(clock)}, opts...)...)
}

func TestSessionManager_LazyAuthentication(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	m := newTestSession(clock, auth)

	if m.State() != StateUnauthenticated {
		t.Errorf("initial State() = %v, want unauthenticated", m.State())
	}
	if auth.calls.Load() != 0 {
		t.Error("NewSessionManager() should not authenticate")
	}

	t1, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	t2, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}

	if t1.Value != t2.Value {
		t.Errorf("valid token should be reused, got %q then %q", t1.Value, t2.Value)
	}
	if auth.calls.Load() != 1 {
		t.Errorf("exchanges = %d, want 1", auth.calls.Load())
	}
	if m.State() != StateValid {
		t.Errorf("State() = %v, want valid", m.State())
	}
}

func TestSessionManager_RefreshBeforeExpiry(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	m := newTestSession(clock, auth)

	t1, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}

	clock.Advance(14 * time.Minute)

	t2, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if t2.Value == t1.Value {
		t.Error("token within the refresh threshold should be replaced")
	}
	if !t2.ExpiresAt.After(t1.ExpiresAt) {
		t.Errorf("new token expires %v, old %v", t2.ExpiresAt, t1.ExpiresAt)
	}
	if auth.calls.Load() != 2 {
		t.Errorf("exchanges = %d, want 2", auth.calls.Load())
	}
}

func TestSessionManager_NeverReturnsExpiredToken(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 2 * time.Minute}
	m := newTestSession(clock, auth)

	for i := 0; i < 200; i++ {
		tok, err := m.EnsureValid(context.Background())
		if err != nil {
			t.Fatalf("EnsureValid() error = %v", err)
		}
		if tok.Expired(clock.Now()) {
			t.Fatalf("step %d: EnsureValid() returned a token expired at %v (now %v)", i, tok.ExpiresAt, clock.Now())
		}
		clock.Advance(7 * time.Second)
	}
}

func TestSessionConfig_Threshold(t *testing.T) {
	cfg := DefaultSessionConfig()

	tests := []struct {
		lifetime time.Duration
		want     time.Duration
	}{
		{15 * time.Minute, 90 * time.Second},
		{2 * time.Minute, 30 * time.Second},
		{40 * time.Second, 20 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.threshold(tt.lifetime); got != tt.want {
			t.Errorf("threshold(%v) = %v, want %v", tt.lifetime, got, tt.want)
		}
	}
}

func TestSessionManager_SingleFlight(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute, gate: make(chan struct{})}
	reg := metric.NewRegistry()
	m := newTestSession(clock, auth, WithSessionMetrics(reg))

	const callers = 50
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.EnsureValid(context.Background())
			tokens[i], errs[i] = tok.Value, err
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	if s := m.State(); s != StateAuthenticating {
		t.Errorf("State() during exchange = %v, want authenticating", s)
	}
	close(auth.gate)
	wg.Wait()

	if auth.calls.Load() != 1 {
		t.Errorf("exchanges = %d, want exactly 1", auth.calls.Load())
	}
	for i := range tokens {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if tokens[i] != "token-1" {
			t.Errorf("caller %d token = %q, want token-1", i, tokens[i])
		}
	}
	if testutil.ToFloat64(reg.SessionWaiters) == 0 {
		t.Error("waiting callers should be counted")
	}
}

func TestSessionManager_SingleFlightRefresh(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	m := newTestSession(clock, auth)

	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}

	clock.Advance(14 * time.Minute)
	auth.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.EnsureValid(context.Background()); err != nil {
				t.Errorf("EnsureValid() error = %v", err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if s := m.State(); s != StateRefreshPending {
		t.Errorf("State() during refresh = %v, want refresh_pending", s)
	}
	close(auth.gate)
	wg.Wait()

	if auth.calls.Load() != 2 {
		t.Errorf("exchanges = %d, want 2 (initial + one refresh)", auth.calls.Load())
	}
}

func TestSessionManager_FailurePropagatesToAllWaiters(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{
		clock:    clock,
		lifetime: 15 * time.Minute,
		gate:     make(chan struct{}),
		fail:     &domain.Error{Kind: domain.KindAuth, Status: 401, Message: "invalid credentials"},
	}
	m := newTestSession(clock, auth)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.EnsureValid(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(auth.gate)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, domain.ErrAuth) {
			t.Errorf("caller %d error = %v, want auth error", i, err)
		}
	}
	if auth.calls.Load() != 1 {
		t.Errorf("exchanges = %d, want 1 (no automatic retry)", auth.calls.Load())
	}
	if m.State() != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", m.State())
	}

	// The next call tries again.
	auth.fail = nil
	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Errorf("EnsureValid() after failure error = %v", err)
	}
}

func TestSessionManager_NetworkFailureIsAuthError(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, fail: &domain.Error{Kind: domain.KindNetwork, Message: "connection refused"}}
	m := newTestSession(clock, auth)

	_, err := m.EnsureValid(context.Background())
	if domain.KindOf(err) != domain.KindAuth {
		t.Errorf("KindOf() = %q, want AUTH", domain.KindOf(err))
	}
	if !errors.Is(err, domain.ErrNetwork) {
		t.Error("the network cause should stay reachable")
	}
}

func TestSessionManager_ExpiredTokenFromExchange(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 0}
	m := newTestSession(clock, auth)

	if _, err := m.EnsureValid(context.Background()); !errors.Is(err, domain.ErrAuth) {
		t.Errorf("EnsureValid() error = %v, want auth error", err)
	}
}

func TestSessionManager_Invalidate(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	m := newTestSession(clock, auth)

	t1, _ := m.EnsureValid(context.Background())

	// A stale value that is no longer current is ignored.
	m.Invalidate("some-older-token")
	if m.State() != StateValid {
		t.Errorf("State() = %v after stale Invalidate, want valid", m.State())
	}

	m.Invalidate(t1.Value)
	if m.State() != StateUnauthenticated {
		t.Errorf("State() = %v after Invalidate, want unauthenticated", m.State())
	}

	t2, err := m.EnsureValid(context.Background())
	if err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	if t2.Value == t1.Value {
		t.Error("EnsureValid() after Invalidate should exchange again")
	}

	m.Invalidate("")
	if m.State() != StateUnauthenticated {
		t.Errorf("State() = %v after unconditional Invalidate", m.State())
	}
}

func TestSessionManager_CanceledWaiter(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	m := newTestSession(clock, auth)

	leaderDone := make(chan error, 1)
	go func() {
		_, err := m.EnsureValid(context.Background())
		leaderDone <- err
	}()
	<-auth.entered

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := m.EnsureValid(ctx)
		waiterDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-waiterDone; !errors.Is(err, domain.ErrCanceled) {
		t.Errorf("waiter error = %v, want canceled", err)
	}

	close(auth.gate)
	if err := <-leaderDone; err != nil {
		t.Errorf("leader error = %v, exchange should be unaffected by a waiter", err)
	}
	if m.State() != StateValid {
		t.Errorf("State() = %v, want valid", m.State())
	}
}

func TestSessionManager_CanceledLeader(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute, gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	m := newTestSession(clock, auth)

	ctx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, err := m.EnsureValid(ctx)
		leaderDone <- err
	}()
	<-auth.entered

	waiterDone := make(chan domain.Token, 1)
	go func() {
		tok, err := m.EnsureValid(context.Background())
		if err != nil {
			t.Errorf("waiter error = %v, want a fresh exchange", err)
		}
		waiterDone <- tok
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-leaderDone; !errors.Is(err, domain.ErrCanceled) {
		t.Errorf("leader error = %v, want canceled", err)
	}

	<-auth.entered
	close(auth.gate)
	if tok := <-waiterDone; tok.Value != "token-2" {
		t.Errorf("waiter token = %q, want token-2 from a second exchange", tok.Value)
	}
}

func TestSessionManager_CanceledBeforeStart(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	m := newTestSession(clock, auth)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.EnsureValid(ctx); !errors.Is(err, domain.ErrCanceled) {
		t.Errorf("EnsureValid() error = %v, want canceled", err)
	}
	if auth.calls.Load() != 0 {
		t.Error("a canceled caller should not start an exchange")
	}
}

func TestSessionManager_Info(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	m := newTestSession(clock, auth, WithUsername("wazuh"))

	tok, _ := m.EnsureValid(context.Background())
	info := m.Info()

	if info.Username != "wazuh" || info.State != StateValid {
		t.Errorf("Info() = %+v", info)
	}
	if !info.ExpiresAt.Equal(tok.ExpiresAt) || !m.Expiry().Equal(tok.ExpiresAt) {
		t.Errorf("Info().ExpiresAt = %v, want %v", info.ExpiresAt, tok.ExpiresAt)
	}
	if m.StateName() != "valid" {
		t.Errorf("StateName() = %q", m.StateName())
	}

	clock.Advance(16 * time.Minute)
	if m.State() != StateUnauthenticated {
		t.Errorf("State() after expiry = %v, want unauthenticated", m.State())
	}
}

func TestSessionManager_MetricsCollector(t *testing.T) {
	clock := newFakeClock()
	auth := &fakeAuth{clock: clock, lifetime: 15 * time.Minute}
	reg := metric.NewRegistry()
	m := newTestSession(clock, auth, WithSessionMetrics(reg))

	if err := reg.Register(metric.NewCollector(m)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}
	clock.Advance(14 * time.Minute)
	if _, err := m.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error = %v", err)
	}

	if got := testutil.ToFloat64(reg.TokenRefreshes); got != 1 {
		t.Errorf("refreshes metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.AuthExchanges.WithLabelValues("success")); got != 2 {
		t.Errorf("exchanges metric = %v, want 2", got)
	}
}
