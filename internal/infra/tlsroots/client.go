package tlsroots

import (
	"crypto/tls"
	"errors"
)

// ErrIncompleteKeyPair is returned when only one of the client certificate
// and key is configured.
var ErrIncompleteKeyPair = errors.New("tlsroots: client certificate and key must be set together")

// Options describes the client side of a TLS connection.
type Options struct {
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string
	// CertFile and KeyFile enable mutual TLS.
	CertFile string
	KeyFile  string
	// InsecureSkipVerify disables server certificate verification.
	InsecureSkipVerify bool
	// ServerName overrides the name checked against the server certificate.
	ServerName string
}

// ClientConfig builds a client tls.Config from opts. With a client
// certificate configured the returned KeyPair serves it; callers holding
// the connection for a long time can Watch it. The KeyPair is nil
// otherwise.
func ClientConfig(opts Options, keyOpts ...KeyPairOption) (*tls.Config, *KeyPair, error) {
	if (opts.CertFile == "") != (opts.KeyFile == "") {
		return nil, nil, ErrIncompleteKeyPair
	}

	roots, err := RootPool(opts.CAFile)
	if err != nil {
		return nil, nil, err
	}
	cfg := &tls.Config{
		RootCAs:            roots,
		MinVersion:         tls.VersionTLS12,
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // tls.verify=false
	}
	if opts.CertFile == "" {
		return cfg, nil, nil
	}

	pair, err := LoadKeyPair(opts.CertFile, opts.KeyFile, keyOpts...)
	if err != nil {
		return nil, nil, err
	}
	cfg.GetClientCertificate = pair.GetClientCertificate
	return cfg, pair, nil
}
