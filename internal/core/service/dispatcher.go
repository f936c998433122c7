package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yndnr/wazuh-cli-go/internal/cli/connection"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/telemetry/logger"
)

// TokenSource supplies bearer tokens.
type TokenSource interface {
	EnsureValid(ctx context.Context) (domain.Token, error)
	Invalidate(stale string)
}

// Transport sends one request.
type Transport interface {
	Execute(ctx context.Context, req *connection.Request, token string) (*connection.Response, error)
}

// Dispatcher runs authenticated requests and decodes the API envelope.
type Dispatcher struct {
	tokens    TokenSource
	transport Transport
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(tokens TokenSource, transport Transport) *Dispatcher {
	return &Dispatcher{tokens: tokens, transport: transport}
}

// envelope is the body of every successful API response.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   int             `json:"error"`
	Message string          `json:"message"`
}

// problem is the body of an API error response.
type problem struct {
	Title       string `json:"title"`
	Detail      string `json:"detail"`
	Message     string `json:"message"`
	Remediation string `json:"remediation"`
	Error       int    `json:"error"`
}

// Do sends req and decodes the data member of the response into out.
//
// A rejected token is invalidated and the call is repeated once with a
// fresh token. A second rejection is an authentication error. op and
// target annotate any returned error.
func (d *Dispatcher) Do(ctx context.Context, op, target string, req *connection.Request, out any) (string, error) {
	log := logger.L(ctx)
	resp, err := d.roundTrip(ctx, req)
	if err != nil {
		log.Debug("api call failed", "op", op, "target", target, "error", err)
		return "", annotate(err, op, target)
	}
	log.Debug("api call", "op", op, "target", target, "method", req.Method, "path", req.Path, "status", resp.StatusCode)
	if !resp.OK() {
		return "", responseError(resp).WithOp(op, target)
	}

	var env envelope
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return "", &domain.Error{Kind: domain.KindAPI, Op: op, Target: target, Status: resp.StatusCode, Message: "malformed response", Cause: err}
		}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &domain.Error{Kind: domain.KindAPI, Op: op, Target: target, Status: resp.StatusCode, Message: "unexpected response data", Cause: err}
		}
	}
	return env.Message, nil
}

func (d *Dispatcher) roundTrip(ctx context.Context, req *connection.Request) (*connection.Response, error) {
	for attempt := 0; ; attempt++ {
		tok, err := d.tokens.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := d.transport.Execute(ctx, req, tok.Value)
		if !errors.Is(err, connection.ErrCredentialRejected) {
			return resp, err
		}
		if attempt > 0 {
			return nil, &domain.Error{
				Kind:    domain.KindAuth,
				Status:  http.StatusUnauthorized,
				Message: "token rejected after re-authentication",
				Cause:   err,
			}
		}
		d.tokens.Invalidate(tok.Value)
	}
}

// responseError maps a non-2xx response to a KindAPI error.
func responseError(resp *connection.Response) *domain.Error {
	e := &domain.Error{Kind: domain.KindAPI, Status: resp.StatusCode}

	var p problem
	if err := json.Unmarshal(resp.Body, &p); err == nil {
		e.Code = p.Error
		switch {
		case p.Detail != "":
			e.Message = p.Detail
		case p.Message != "":
			e.Message = p.Message
		default:
			e.Message = p.Title
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func annotate(err error, op, target string) error {
	if de, ok := domain.AsError(err); ok {
		return de.WithOp(op, target)
	}
	return fmt.Errorf("%s %s: %w", op, target, err)
}
