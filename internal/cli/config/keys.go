package config

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// keyHelp describes every settable key.
var keyHelp = map[string]string{
	"api.host":            "manager API host",
	"api.port":            "manager API port",
	"api.protocol":        "http or https",
	"api.timeout":         "per-request timeout",
	"api.max_retries":     "attempts for idempotent requests, including the first",
	"auth.username":       "API user",
	"auth.password":       "API password",
	"auth.token_lifetime": "assumed token lifetime when the token carries no expiry",
	"auth.refresh_margin": "minimum time before expiry to refresh",
	"auth.refresh_ratio":  "fraction of the token lifetime to refresh before expiry",
	"tls.verify":          "verify the server certificate",
	"tls.ca_cert":         "CA bundle used to verify the server",
	"tls.client_cert":     "client certificate for mutual TLS",
	"tls.client_key":      "client key for mutual TLS",
	"output.format":       "table, json or yaml",
	"output.color":        "colorize table output",
	"batch.concurrency":   "requests in flight for bulk commands",
	"batch.rate":          "requests per second for bulk commands, 0 for no limit",
}

// Keys returns every configuration key, sorted.
func Keys() []string {
	out := make([]string, 0, len(keyHelp))
	for k := range keyHelp {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyHelp returns the description of key.
func KeyHelp(key string) string {
	return keyHelp[key]
}

// IsKey reports whether key is a configuration key.
func IsKey(key string) bool {
	_, ok := keyHelp[key]
	return ok
}

// IsSecretKey reports whether the value of key is masked on display.
func IsSecretKey(key string) bool {
	return key == "auth.password"
}

// Flatten returns the configuration as dotted keys. Durations are rendered
// in Go syntax so the result round-trips through YAML and the loader.
func (c *CLIConfig) Flatten() map[string]any {
	return map[string]any{
		"api.host":            c.API.Host,
		"api.port":            c.API.Port,
		"api.protocol":        c.API.Protocol,
		"api.timeout":         c.API.Timeout.String(),
		"api.max_retries":     c.API.MaxRetries,
		"auth.username":       c.Auth.Username,
		"auth.password":       c.Auth.Password,
		"auth.token_lifetime": c.Auth.TokenLifetime.String(),
		"auth.refresh_margin": c.Auth.RefreshMargin.String(),
		"auth.refresh_ratio":  c.Auth.RefreshRatio,
		"tls.verify":          c.TLS.Verify,
		"tls.ca_cert":         c.TLS.CACert,
		"tls.client_cert":     c.TLS.ClientCert,
		"tls.client_key":      c.TLS.ClientKey,
		"output.format":       c.Output.Format,
		"output.color":        c.Output.Color,
		"batch.concurrency":   c.Batch.Concurrency,
		"batch.rate":          c.Batch.Rate,
	}
}

// Value returns the display form of key.
func (c *CLIConfig) Value(key string) (string, error) {
	if !IsKey(key) {
		return "", domain.Validationf("unknown configuration key %q", key)
	}
	switch v := c.Flatten()[key].(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Masked returns a copy with secrets replaced for display.
func (c *CLIConfig) Masked() *CLIConfig {
	m := *c
	m.Auth.Password = MaskSecret(c.Auth.Password)
	return &m
}

// MaskSecret hides a secret, keeping only whether it is set.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
