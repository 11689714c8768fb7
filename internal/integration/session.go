package integration

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"
)

const defaultSessionTimeout = 30 * time.Second

// SessionOptions configures the transport for one integration instance.
type SessionOptions struct {
	Timeout time.Duration
	// LegacyTLS relaxes the minimum TLS version for government endpoints
	// still serving configurations modern defaults reject.
	LegacyTLS bool
}

// Session is the single shared transport for one integration instance:
// one cookie jar, one connection pool, bounded timeouts. It is created at
// instance setup and closed exactly once at teardown.
type Session struct {
	client *http.Client

	mu     sync.Mutex
	closed bool
}

// NewSession builds the instance transport. Every request through it
// carries the session cookie jar and the configured timeout.
func NewSession(opts SessionOptions) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultSessionTimeout
	}

	var transport *http.Transport
	if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = defaultTransport.Clone()
	} else {
		transport = &http.Transport{}
	}
	if opts.LegacyTLS {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS10} //nolint:gosec
	}

	return &Session{
		client: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// HTTPClient exposes the underlying client for service requests.
func (s *Session) HTTPClient() *http.Client {
	return s.client
}

// Close releases the connection pool. It is idempotent and safe on a nil
// session, so teardown can call it even when setup failed partway.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.client.CloseIdleConnections()
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
