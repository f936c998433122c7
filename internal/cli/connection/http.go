package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/infra/buildinfo"
	"github.com/yndnr/wazuh-cli-go/internal/infra/tlsroots"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/metric"
)

// ErrCredentialRejected is returned when the API answers 401 to a request
// carrying a bearer token.
var ErrCredentialRejected = errors.New("connection: credential rejected")

// DefaultMaxBodySize bounds how much of a response body is read.
const DefaultMaxBodySize = 32 << 20

// HTTPTransport sends requests to the manager API with bounded retry.
type HTTPTransport struct {
	baseURL   string
	client    *http.Client
	retry     RetryPolicy
	clock     Clock
	metrics   *metric.Registry
	userAgent string
	maxBody   int64
	timeout   time.Duration
	keyPair   *tlsroots.KeyPair
	log       *slog.Logger
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) TransportOption {
	return func(t *HTTPTransport) { t.retry = p }
}

// WithClock injects the time source used for backoff.
func WithClock(c Clock) TransportOption {
	return func(t *HTTPTransport) { t.clock = c }
}

// WithMetrics records transport metrics in r.
func WithMetrics(r *metric.Registry) TransportOption {
	return func(t *HTTPTransport) { t.metrics = r }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) { t.timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) TransportOption {
	return func(t *HTTPTransport) { t.userAgent = ua }
}

// WithLogger sets the logger for TLS key pair reloads.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *HTTPTransport) { t.log = l }
}

// WithMaxBodySize bounds the response body size.
func WithMaxBodySize(n int64) TransportOption {
	return func(t *HTTPTransport) { t.maxBody = n }
}

// NewHTTPTransport creates a transport for the endpoint in cred.
func NewHTTPTransport(cred Credential, opts ...TransportOption) (*HTTPTransport, error) {
	t := &HTTPTransport{
		baseURL:   cred.BaseURL(),
		retry:     DefaultRetryPolicy(),
		clock:     SystemClock(),
		userAgent: buildinfo.UserAgent(),
		maxBody:   DefaultMaxBodySize,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}

	tlsConfig, keyPair, err := tlsroots.ClientConfig(tlsroots.Options{
		CAFile:             cred.TLS.CAFile,
		CertFile:           cred.TLS.ClientCertFile,
		KeyFile:            cred.TLS.ClientKeyFile,
		InsecureSkipVerify: cred.TLS.InsecureSkipVerify,
	}, tlsroots.WithLogger(t.log))
	if err != nil {
		return nil, domain.NewError(domain.KindValidation, "tls configuration").WithCause(err)
	}
	t.keyPair = keyPair

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	t.client = &http.Client{
		Timeout: t.timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSClientConfig:       tlsConfig,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: t.timeout,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
		},
		// Redirects are returned to the caller as-is.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return t, nil
}

// BaseURL returns the base URL of the transport.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// ClientKeyPair returns the mutual TLS client certificate, nil without mTLS.
func (t *HTTPTransport) ClientKeyPair() *tlsroots.KeyPair {
	return t.keyPair
}

// Close releases idle connections.
func (t *HTTPTransport) Close() {
	t.client.CloseIdleConnections()
}

// Execute sends req with a bearer token.
//
// GET and HEAD are retried on connection errors, timeouts, 429 and 5xx until
// the retry policy is exhausted. Other methods are attempted once and any
// response is returned for the caller to interpret. A 401 is reported as
// ErrCredentialRejected.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request, token string) (*Response, error) {
	return t.send(ctx, req, func(h *http.Request) {
		if token != "" {
			h.Header.Set("Authorization", "Bearer "+token)
		}
	}, true)
}

func (t *HTTPTransport) send(ctx context.Context, req *Request, auth func(*http.Request), rejectOn401 bool) (*Response, error) {
	start := t.clock.Now()
	resp, err := t.sendWithRetry(ctx, req, auth, rejectOn401)
	t.metrics.ObserveRequest(req.Method, outcome(resp, err), t.clock.Now().Sub(start))
	return resp, err
}

func (t *HTTPTransport) sendWithRetry(ctx context.Context, req *Request, auth func(*http.Request), rejectOn401 bool) (*Response, error) {
	attempts := t.retry.attempts(req)

	var (
		lastErr    error
		lastStatus int
		lastHeader http.Header
	)
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t.metrics.IncRetry(req.Method)
			select {
			case <-ctx.Done():
				return nil, canceled(req, ctx.Err())
			case <-t.clock.After(t.retry.delay(i-1, lastHeader)):
			}
		}

		resp, err := t.attempt(ctx, req, auth)
		if err != nil {
			t.metrics.ObserveAttempt(req.Method, 0)
			if ctx.Err() != nil {
				return nil, canceled(req, ctx.Err())
			}
			if isTLSFailure(err) || !req.Idempotent() {
				return nil, networkError(req, err)
			}
			lastErr, lastStatus, lastHeader = err, 0, nil
			continue
		}

		t.metrics.ObserveAttempt(req.Method, resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized && rejectOn401 {
			t.metrics.IncRejection()
			return resp, fmt.Errorf("%w: %s", ErrCredentialRejected, req)
		}
		if req.Idempotent() && retryableStatus(resp.StatusCode) {
			lastErr, lastStatus, lastHeader = nil, resp.StatusCode, resp.Header
			continue
		}
		return resp, nil
	}

	return nil, &domain.Error{
		Kind:     domain.KindExhausted,
		Message:  req.String(),
		Status:   lastStatus,
		Attempts: attempts,
		Cause:    lastErr,
	}
}

func (t *HTTPTransport) attempt(ctx context.Context, req *Request, auth func(*http.Request)) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL(t.baseURL), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	hreq.Header.Set("User-Agent", t.userAgent)
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("X-Request-ID", ulid.Make().String())
	if req.Body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	auth(hreq)

	hresp, err := t.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(hresp.Body, t.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > t.maxBody {
		return nil, fmt.Errorf("response body exceeds %d bytes", t.maxBody)
	}

	return &Response{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       data,
	}, nil
}

// isTLSFailure reports certificate verification and handshake protocol
// errors. They will fail the same way on every attempt.
func isTLSFailure(err error) bool {
	var (
		verifyErr *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		invalid   x509.CertificateInvalidError
		hostname  x509.HostnameError
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &invalid) ||
		errors.As(err, &hostname) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr)
}

func networkError(req *Request, err error) *domain.Error {
	msg := req.String()
	if isTLSFailure(err) {
		msg += ": tls verification failed"
	}
	return &domain.Error{Kind: domain.KindNetwork, Message: msg, Cause: err}
}

func canceled(req *Request, err error) *domain.Error {
	return &domain.Error{Kind: domain.KindCanceled, Message: req.String(), Cause: err}
}

func outcome(resp *Response, err error) string {
	switch {
	case errors.Is(err, ErrCredentialRejected):
		return "rejected"
	case err != nil:
		return string(domain.KindOf(err))
	case resp.OK():
		return "success"
	default:
		return "http_error"
	}
}
