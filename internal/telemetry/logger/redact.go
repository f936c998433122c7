package logger

import (
	"log/slog"
	"strings"
)

// Key fragments whose values are always hidden.
var sensitiveKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"bearer",
	"credential",
}

// jwtPrefix starts every base64url-encoded JSON header, so any JWT.
const jwtPrefix = "eyJ"

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if IsSensitiveValue(v) {
			return slog.String(a.Key, RedactString(v))
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactString masks JWT-shaped and bearer values found anywhere in s,
// keeping a short hint. Other text is returned unchanged.
func RedactString(s string) string {
	fields := strings.Fields(s)
	changed := false
	for i, f := range fields {
		if strings.HasPrefix(f, jwtPrefix) && strings.Count(f, ".") >= 2 {
			fields[i] = maskValue(f)
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(fields, " ")
}

// maskValue keeps the first and last four characters of long values.
func maskValue(v string) string {
	if len(v) <= 12 {
		return "***"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue reports whether v contains a JWT.
func IsSensitiveValue(v string) bool {
	return strings.Contains(v, jwtPrefix) && RedactString(v) != v
}
