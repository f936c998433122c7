package tlsroots

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertificates is returned for a CA bundle without any CERTIFICATE block.
var ErrNoCertificates = errors.New("tlsroots: no certificates in CA bundle")

// RootPool returns the system roots extended with the certificates of the
// PEM bundle at caFile. An empty caFile returns the system roots alone.
func RootPool(caFile string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if caFile == "" {
		return pool, nil
	}

	bundle, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: read CA bundle: %w", err)
	}
	if err := appendBundle(pool, bundle); err != nil {
		return nil, fmt.Errorf("%w (%s)", err, caFile)
	}
	return pool, nil
}

// appendBundle adds every certificate of a PEM bundle to pool. Blocks of
// other types (keys, CRLs) are skipped.
func appendBundle(pool *x509.CertPool, bundle []byte) error {
	n := 0
	for rest := bundle; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse CA certificate %d: %w", n+1, err)
		}
		pool.AddCert(cert)
		n++
	}
	if n == 0 {
		return ErrNoCertificates
	}
	return nil
}
