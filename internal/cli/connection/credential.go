package connection

import (
	"net"
	"strconv"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// TLSOptions configures verification of the manager certificate and the
// optional client certificate.
type TLSOptions struct {
	CAFile             string
	ClientCertFile     string
	ClientKeyFile      string
	InsecureSkipVerify bool
}

// Credential is everything needed to reach and log in to the manager. It is
// built once at startup and never mutated.
type Credential struct {
	Host     string
	Port     int
	Protocol string
	Username string
	Password string
	TLS      TLSOptions
}

// BaseURL renders protocol://host:port.
func (c Credential) BaseURL() string {
	proto := c.Protocol
	if proto == "" {
		proto = "https"
	}
	return proto + "://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the credential before any request is made.
func (c Credential) Validate() error {
	if c.Host == "" {
		return domain.Validationf("api host required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return domain.Validationf("invalid api port %d", c.Port)
	}
	switch c.Protocol {
	case "", "http", "https":
	default:
		return domain.Validationf("invalid api protocol %q: expected http or https", c.Protocol)
	}
	if c.Username == "" {
		return domain.Validationf("username required")
	}
	if c.Password == "" {
		return domain.Validationf("password required")
	}
	return nil
}
