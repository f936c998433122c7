package domain

import "time"

// Token is a bearer credential issued by the authenticate endpoint.
//
// IssuedAt and ExpiresAt are expressed on the local clock, so comparisons
// against time.Now (or an injected clock) are meaningful even when the
// manager's clock drifts.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool {
	return t.Value == ""
}

// Lifetime returns the total validity window of the token.
func (t Token) Lifetime() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}

// Remaining returns how long the token stays valid after now.
func (t Token) Remaining(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// Expired reports whether now is at or past the expiry.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// String masks the token value; bearer tokens must never reach logs.
func (t Token) String() string {
	if t.Value == "" {
		return "<none>"
	}
	if len(t.Value) <= 8 {
		return "***"
	}
	return t.Value[:4] + "..." + t.Value[len(t.Value)-4:]
}
