package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/metric"
)

// State is the lifecycle state of a session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateValid
	StateRefreshPending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateValid:
		return "valid"
	case StateRefreshPending:
		return "refresh_pending"
	default:
		return "unknown"
	}
}

// SessionConfig controls when a token is refreshed.
//
// A token is refreshed once its remaining lifetime drops below
// max(RefreshMargin, RefreshRatio*lifetime), never more than half its
// lifetime.
type SessionConfig struct {
	RefreshMargin time.Duration
	RefreshRatio  float64
}

// DefaultSessionConfig returns a 30s margin and a 10% ratio.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RefreshMargin: 30 * time.Second,
		RefreshRatio:  0.10,
	}
}

func (c SessionConfig) threshold(lifetime time.Duration) time.Duration {
	th := c.RefreshMargin
	if byRatio := time.Duration(float64(lifetime) * c.RefreshRatio); byRatio > th {
		th = byRatio
	}
	if half := lifetime / 2; th > half {
		th = half
	}
	return th
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	State     State
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionManager owns the bearer token. It hands out valid tokens and
// makes sure at most one credential exchange is in flight.
type SessionManager struct {
	auth     Authenticator
	clock    Clock
	cfg      SessionConfig
	metrics  *metric.Registry
	username string

	mu     sync.Mutex
	token  domain.Token
	state  State
	flight *flight
}

// flight is one credential exchange shared by every caller that needs a
// token while it runs.
type flight struct {
	done  chan struct{}
	token domain.Token
	err   error
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionConfig sets the refresh policy.
func WithSessionConfig(cfg SessionConfig) SessionOption {
	return func(m *SessionManager) { m.cfg = cfg }
}

// WithSessionClock injects the time source.
func WithSessionClock(c Clock) SessionOption {
	return func(m *SessionManager) { m.clock = c }
}

// WithSessionMetrics records session metrics in r.
func WithSessionMetrics(r *metric.Registry) SessionOption {
	return func(m *SessionManager) { m.metrics = r }
}

// WithUsername labels the session for display.
func WithUsername(name string) SessionOption {
	return func(m *SessionManager) { m.username = name }
}

// NewSessionManager creates an unauthenticated session.
func NewSessionManager(auth Authenticator, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		auth:  auth,
		clock: SystemClock(),
		cfg:   DefaultSessionConfig(),
		state: StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValid returns a token that is not expired.
//
// A token outside the refresh threshold is returned immediately. Otherwise
// the first caller runs the credential exchange on its own context and
// every concurrent caller waits for that exchange. A failed exchange leaves
// the session unauthenticated and is returned to all of them as a
// KindAuth error. Waiters whose context is still live when the exchange was
// canceled by its leader start a new one.
func (m *SessionManager) EnsureValid(ctx context.Context) (domain.Token, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Token{}, &domain.Error{Kind: domain.KindCanceled, Op: "session", Cause: err}
		}

		m.mu.Lock()
		if m.usable(m.clock.Now()) {
			tok := m.token
			m.mu.Unlock()
			return tok, nil
		}

		f := m.flight
		leader := f == nil
		if leader {
			f = &flight{done: make(chan struct{})}
			m.flight = f
			refresh := !m.token.IsZero()
			if refresh {
				m.state = StateRefreshPending
			} else {
				m.state = StateAuthenticating
			}
			m.mu.Unlock()
			m.exchange(ctx, f, refresh)
		} else {
			m.mu.Unlock()
			m.metrics.IncSharedWait()
			select {
			case <-f.done:
			case <-ctx.Done():
				return domain.Token{}, &domain.Error{Kind: domain.KindCanceled, Op: "session", Cause: ctx.Err()}
			}
		}

		if f.err == nil {
			return f.token, nil
		}
		if !leader && domain.KindOf(f.err) == domain.KindCanceled && ctx.Err() == nil {
			continue
		}
		return domain.Token{}, f.err
	}
}

// usable reports whether the current token can be handed out without an
// exchange. Callers hold m.mu.
func (m *SessionManager) usable(now time.Time) bool {
	if m.token.IsZero() || m.token.Expired(now) {
		return false
	}
	return m.token.Remaining(now) > m.cfg.threshold(m.token.Lifetime())
}

func (m *SessionManager) exchange(ctx context.Context, f *flight, refresh bool) {
	tok, err := m.auth.Authenticate(ctx)
	if err == nil && tok.Expired(m.clock.Now()) {
		err = &domain.Error{Kind: domain.KindAuth, Op: "session", Message: "received an expired token"}
	}
	m.metrics.ObserveAuth(err, refresh)

	m.mu.Lock()
	if err != nil {
		m.token = domain.Token{}
		m.state = StateUnauthenticated
		f.err = authFailure(ctx, err)
	} else {
		m.token = tok
		m.state = StateValid
		f.token = tok
	}
	m.flight = nil
	m.mu.Unlock()

	close(f.done)
}

func authFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, domain.ErrCanceled) {
		cause := ctx.Err()
		if cause == nil {
			cause = err
		}
		return &domain.Error{Kind: domain.KindCanceled, Op: "session", Cause: cause}
	}
	if domain.KindOf(err) == domain.KindAuth {
		return err
	}
	return &domain.Error{Kind: domain.KindAuth, Op: "session", Message: "credential exchange failed", Cause: err}
}

// Invalidate drops the current token so the next EnsureValid exchanges
// credentials again. If stale is non-empty the token is only dropped when
// it is still the current one, so a rejection racing a refresh does not
// discard the fresh token.
func (m *SessionManager) Invalidate(stale string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stale != "" && m.token.Value != stale {
		return
	}
	m.token = domain.Token{}
	if m.flight == nil {
		m.state = StateUnauthenticated
	}
}

// State returns the current session state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(m.clock.Now())
}

func (m *SessionManager) stateLocked(now time.Time) State {
	if m.state == StateValid && m.token.Expired(now) {
		return StateUnauthenticated
	}
	return m.state
}

// Info returns a snapshot of the session.
func (m *SessionManager) Info() SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionInfo{
		State:     m.stateLocked(m.clock.Now()),
		Username:  m.username,
		IssuedAt:  m.token.IssuedAt,
		ExpiresAt: m.token.ExpiresAt,
	}
}

// StateName implements metric.SessionSource.
func (m *SessionManager) StateName() string {
	return m.State().String()
}

// Expiry implements metric.SessionSource.
func (m *SessionManager) Expiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.ExpiresAt
}
