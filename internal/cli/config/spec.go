package config

import (
	"time"

	"github.com/yndnr/wazuh-cli-go/internal/cli/connection"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
	"github.com/yndnr/wazuh-cli-go/internal/core/service"
)

// CLIConfig is the configuration for wazuh-cli.
type CLIConfig struct {
	API    APIConfig    `koanf:"api"`
	Auth   AuthConfig   `koanf:"auth"`
	TLS    TLSConfig    `koanf:"tls"`
	Output OutputConfig `koanf:"output"`
	Batch  BatchConfig  `koanf:"batch"`
}

// APIConfig locates the manager API.
type APIConfig struct {
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Protocol   string        `koanf:"protocol"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

// AuthConfig holds the credentials and the token refresh policy.
type AuthConfig struct {
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	TokenLifetime time.Duration `koanf:"token_lifetime"`
	RefreshMargin time.Duration `koanf:"refresh_margin"`
	RefreshRatio  float64       `koanf:"refresh_ratio"`
}

// TLSConfig controls server verification and the client certificate.
type TLSConfig struct {
	Verify     bool   `koanf:"verify"`
	CACert     string `koanf:"ca_cert"`
	ClientCert string `koanf:"client_cert"`
	ClientKey  string `koanf:"client_key"`
}

// OutputConfig selects how results are rendered.
type OutputConfig struct {
	Format string `koanf:"format"`
	Color  bool   `koanf:"color"`
}

// BatchConfig bounds fan-out commands.
type BatchConfig struct {
	Concurrency int     `koanf:"concurrency"`
	Rate        float64 `koanf:"rate"`
}

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	session := connection.DefaultSessionConfig()
	retry := connection.DefaultRetryPolicy()
	return &CLIConfig{
		API: APIConfig{
			Host:       "localhost",
			Port:       55000,
			Protocol:   "https",
			Timeout:    30 * time.Second,
			MaxRetries: retry.MaxAttempts,
		},
		Auth: AuthConfig{
			TokenLifetime: connection.DefaultTokenLifetime,
			RefreshMargin: session.RefreshMargin,
			RefreshRatio:  session.RefreshRatio,
		},
		TLS:    TLSConfig{Verify: true},
		Output: OutputConfig{Format: FormatTable, Color: true},
		Batch:  BatchConfig{Concurrency: service.DefaultBatchConcurrency},
	}
}

// Validate checks the configuration without touching the network.
// Credentials are not required here; commands that talk to the API check
// them through Credential().Validate().
func (c *CLIConfig) Validate() error {
	switch c.API.Protocol {
	case "http", "https":
	default:
		return domain.Validationf("api.protocol must be http or https, got %q", c.API.Protocol)
	}
	if c.API.Host == "" {
		return domain.Validationf("api.host is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return domain.Validationf("api.port must be between 1 and 65535, got %d", c.API.Port)
	}
	if c.API.Timeout <= 0 {
		return domain.Validationf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.MaxRetries < 1 {
		return domain.Validationf("api.max_retries must be at least 1, got %d", c.API.MaxRetries)
	}
	if c.Auth.TokenLifetime <= 0 {
		return domain.Validationf("auth.token_lifetime must be positive")
	}
	if c.Auth.RefreshMargin < 0 {
		return domain.Validationf("auth.refresh_margin must not be negative")
	}
	if c.Auth.RefreshRatio < 0 || c.Auth.RefreshRatio >= 1 {
		return domain.Validationf("auth.refresh_ratio must be in [0, 1), got %g", c.Auth.RefreshRatio)
	}
	if (c.TLS.ClientCert == "") != (c.TLS.ClientKey == "") {
		return domain.Validationf("tls.client_cert and tls.client_key must be set together")
	}
	switch c.Output.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return domain.Validationf("output.format must be table, json or yaml, got %q", c.Output.Format)
	}
	if c.Batch.Concurrency < 1 {
		return domain.Validationf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.Rate < 0 {
		return domain.Validationf("batch.rate must not be negative")
	}
	return nil
}

// Credential builds the connection credential.
func (c *CLIConfig) Credential() connection.Credential {
	return connection.Credential{
		Host:     c.API.Host,
		Port:     c.API.Port,
		Protocol: c.API.Protocol,
		Username: c.Auth.Username,
		Password: c.Auth.Password,
		TLS: connection.TLSOptions{
			CAFile:             c.TLS.CACert,
			ClientCertFile:     c.TLS.ClientCert,
			ClientKeyFile:      c.TLS.ClientKey,
			InsecureSkipVerify: !c.TLS.Verify,
		},
	}
}

// SessionConfig returns the token refresh policy.
func (c *CLIConfig) SessionConfig() connection.SessionConfig {
	return connection.SessionConfig{
		RefreshMargin: c.Auth.RefreshMargin,
		RefreshRatio:  c.Auth.RefreshRatio,
	}
}

// RetryPolicy returns the transport retry policy. api.max_retries counts
// every attempt, the first included.
func (c *CLIConfig) RetryPolicy() connection.RetryPolicy {
	p := connection.DefaultRetryPolicy()
	p.MaxAttempts = c.API.MaxRetries
	return p
}

// BatchOptions returns the fan-out bounds.
func (c *CLIConfig) BatchOptions() service.BatchConfig {
	return service.BatchConfig{
		Concurrency: c.Batch.Concurrency,
		Rate:        c.Batch.Rate,
	}
}
