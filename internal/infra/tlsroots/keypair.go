package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long KeyPair waits after the last file event before
// reloading, so a certificate and key rotated together load as one pair.
const DefaultSettle = 250 * time.Millisecond

// KeyPair serves a client certificate for mutual TLS and reloads it when
// the certificate or key file changes. A failed reload keeps the previous
// pair.
type KeyPair struct {
	certFile string
	keyFile  string
	settle   time.Duration
	log      *slog.Logger

	mu      sync.RWMutex
	current *tls.Certificate
	reloads atomic.Int64
}

// KeyPairOption configures a KeyPair.
type KeyPairOption func(*KeyPair)

// WithLogger sets the logger for reload events.
func WithLogger(l *slog.Logger) KeyPairOption {
	return func(k *KeyPair) {
		if l != nil {
			k.log = l
		}
	}
}

// WithSettle sets the quiet period before a reload.
func WithSettle(d time.Duration) KeyPairOption {
	return func(k *KeyPair) {
		k.settle = d
	}
}

// LoadKeyPair loads the certificate and key.
func LoadKeyPair(certFile, keyFile string, opts ...KeyPairOption) (*KeyPair, error) {
	k := &KeyPair{
		certFile: certFile,
		keyFile:  keyFile,
		settle:   DefaultSettle,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if err := k.load(); err != nil {
		return nil, err
	}
	return k, nil
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (k *KeyPair) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current, nil
}

// Reloads returns how many times the pair was reloaded since it was loaded.
func (k *KeyPair) Reloads() int {
	return int(k.reloads.Load())
}

// Watch reloads the pair on file changes until ctx is done. The parent
// directories are watched so atomic renames are seen.
func (k *KeyPair) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range uniqueDirs(k.certFile, k.keyFile) {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	names := map[string]bool{
		filepath.Clean(k.certFile): true,
		filepath.Clean(k.keyFile):  true,
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !names[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(k.settle)
		case <-timer.C:
			if err := k.load(); err != nil {
				k.log.Warn("client certificate not reloaded", "cert_file", k.certFile, "error", err)
				continue
			}
			k.reloads.Add(1)
			k.log.Info("client certificate reloaded", "cert_file", k.certFile)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			k.log.Warn("client certificate watch error", "error", err)
		}
	}
}

func (k *KeyPair) load() error {
	cert, err := tls.LoadX509KeyPair(k.certFile, k.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load client certificate: %w", err)
	}
	k.mu.Lock()
	k.current = &cert
	k.mu.Unlock()
	return nil
}

func uniqueDirs(paths ...string) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, p := range paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}
