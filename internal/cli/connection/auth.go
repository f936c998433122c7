package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// AuthenticatePath is the credential exchange endpoint.
const AuthenticatePath = "/security/user/authenticate"

// DefaultTokenLifetime is the manager's default token validity, used when
// the token carries no expiry claims.
const DefaultTokenLifetime = 900 * time.Second

// Authenticator performs the credential exchange.
type Authenticator interface {
	Authenticate(ctx context.Context) (domain.Token, error)
}

// PasswordAuthenticator exchanges a username and password for a token
// through an HTTPTransport.
type PasswordAuthenticator struct {
	transport *HTTPTransport
	username  string
	password  string
	clock     Clock
	lifetime  time.Duration
}

// NewPasswordAuthenticator creates an authenticator for cred. lifetime is
// the fallback token lifetime; zero selects DefaultTokenLifetime.
func NewPasswordAuthenticator(t *HTTPTransport, cred Credential, lifetime time.Duration) *PasswordAuthenticator {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &PasswordAuthenticator{
		transport: t,
		username:  cred.Username,
		password:  cred.Password,
		clock:     t.clock,
		lifetime:  lifetime,
	}
}

// Authenticate implements Authenticator.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context) (domain.Token, error) {
	// Stamped before the round trip so the local expiry is never later than
	// the server's.
	sent := a.clock.Now()
	raw, err := a.transport.Login(ctx, a.username, a.password)
	if err != nil {
		return domain.Token{}, err
	}
	return ParseToken(raw, sent, a.lifetime)
}

// Login performs the credential exchange and returns the raw token.
func (t *HTTPTransport) Login(ctx context.Context, username, password string) (string, error) {
	req := &Request{Method: http.MethodPost, Path: AuthenticatePath}
	resp, err := t.send(ctx, req, func(h *http.Request) {
		h.SetBasicAuth(username, password)
	}, false)
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &domain.Error{
			Kind:    domain.KindAuth,
			Op:      "login",
			Target:  username,
			Status:  resp.StatusCode,
			Message: "invalid credentials",
		}
	case !resp.OK():
		return "", &domain.Error{
			Kind:    domain.KindAuth,
			Op:      "login",
			Target:  username,
			Status:  resp.StatusCode,
			Message: "unexpected response from authenticate endpoint",
		}
	}

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", &domain.Error{Kind: domain.KindAuth, Op: "login", Message: "malformed authenticate response", Cause: err}
	}
	if body.Data.Token == "" {
		return "", &domain.Error{Kind: domain.KindAuth, Op: "login", Message: "authenticate response carried no token"}
	}
	return body.Data.Token, nil
}

// ParseToken builds a Token from a raw bearer value received at now.
//
// For JWTs the lifetime is exp minus iat (or exp minus now without iat),
// rebased on the local clock. Other tokens get the fallback lifetime. The
// signature is not verified; the manager does that on every request.
func ParseToken(raw string, now time.Time, fallback time.Duration) (domain.Token, error) {
	lifetime := fallback

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err == nil && claims.ExpiresAt != nil {
		if claims.IssuedAt != nil {
			lifetime = claims.ExpiresAt.Sub(claims.IssuedAt.Time)
		} else {
			lifetime = claims.ExpiresAt.Sub(now)
		}
	}

	if lifetime <= 0 {
		return domain.Token{}, &domain.Error{
			Kind:    domain.KindAuth,
			Op:      "login",
			Message: fmt.Sprintf("token issued already expired (lifetime %s)", lifetime),
		}
	}

	return domain.Token{
		Value:     raw,
		IssuedAt:  now,
		ExpiresAt: now.Add(lifetime),
	}, nil
}
