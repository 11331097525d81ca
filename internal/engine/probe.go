package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/redact"
)

// Emulated browser identities, matching the Chrome builds performance
// tooling conventionally emulates per device class.
const (
	mobileUserAgent  = "Mozilla/5.0 (Linux; Android 11; moto g power (2022)) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
	desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

const (
	// defaultMaxBodyBytes caps how much of the document body is metered.
	defaultMaxBodyBytes = 25 << 20 // 25 MiB

	// maxRedirects bounds the navigation redirect chain.
	maxRedirects = 10
)

// ProbeEngine implements Engine by navigating to the target with an
// instrumented HTTP client and measuring the network phases of the
// navigation. Every session gets its own transport, so concurrent audits
// never share connections, DNS lookups, or TLS state.
type ProbeEngine struct {
	logger       *slog.Logger
	maxBodyBytes int64
}

// ProbeOption customizes a ProbeEngine.
type ProbeOption func(*ProbeEngine)

// WithMaxBodyBytes overrides the metering cap on document body size.
func WithMaxBodyBytes(n int64) ProbeOption {
	return func(e *ProbeEngine) {
		if n > 0 {
			e.maxBodyBytes = n
		}
	}
}

// NewProbeEngine creates a ProbeEngine.
// Returns an error if logger is nil.
func NewProbeEngine(logger *slog.Logger, opts ...ProbeOption) (*ProbeEngine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	e := &ProbeEngine{
		logger:       logger.With("component", "probe_engine"),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewSession allocates a fresh, exclusively owned execution context: a
// dedicated transport and client that no other attempt can touch.
func (e *ProbeEngine) NewSession(settings domain.AuditSettings) (Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   settings.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:          4,
		IdleConnTimeout:       settings.Timeout,
		TLSHandshakeTimeout:   settings.Timeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	s := &probeSession{
		engine:    e,
		settings:  settings,
		transport: transport,
	}
	s.client = &http.Client{
		Transport:     transport,
		CheckRedirect: s.checkRedirect,
	}
	return s, nil
}

// probeSession is one execution context: a single-use client owned by a
// single attempt. Close is idempotent and forcibly aborts a Run in flight.
type probeSession struct {
	engine    *ProbeEngine
	settings  domain.AuditSettings
	transport *http.Transport
	client    *http.Client

	ran    atomic.Bool
	closed atomic.Bool

	mu        sync.Mutex
	cancelRun context.CancelFunc
	redirects int
}

func (s *probeSession) checkRedirect(req *http.Request, via []*http.Request) error {
	s.mu.Lock()
	s.redirects = len(via)
	s.mu.Unlock()
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return nil
}

// Run navigates to the target URL and measures the navigation. The engine
// enforces its own clean timeout (the configured audit timeout); callers
// that need a hard stop beyond that close the session.
func (s *probeSession) Run(ctx context.Context, targetURL string) (*domain.Report, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if !s.ran.CompareAndSwap(false, true) {
		return nil, ErrSessionReused
	}

	runCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()

	rec := newTraceRecorder()
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(runCtx, rec.clientTrace()), http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid target %q: %v", ErrEngine, targetURL, err)
	}
	s.applyDeviceProfile(req)

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.classifyNavError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// The main document failing is an audit failure, not a partial result:
	// there is no meaningful performance report for an error page.
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: document request failed with status %d", ErrEngine, resp.StatusCode)
	}

	transferred, err := io.Copy(io.Discard, io.LimitReader(resp.Body, s.engine.maxBodyBytes))
	if err != nil {
		return nil, s.classifyNavError(err)
	}
	finished := time.Now()

	timing := rec.timing(started, finished)
	s.mu.Lock()
	redirects := s.redirects
	s.mu.Unlock()

	report := &domain.Report{
		URL:           targetURL,
		FinalURL:      resp.Request.URL.String(),
		Device:        s.settings.Device,
		FetchedAt:     started.UTC(),
		StatusCode:    resp.StatusCode,
		Redirects:     redirects,
		Timing:        timing,
		TransferBytes: transferred,
		Score:         scoreTiming(timing, s.settings.Device),
	}

	s.engine.logger.Debug("navigation measured",
		"url", redact.URL(targetURL),
		"status", resp.StatusCode,
		"ttfb_ms", timing.TTFB.Milliseconds(),
		"total_ms", timing.Total.Milliseconds(),
		"bytes", transferred,
		"score", report.Score)

	return report, nil
}

// Close releases the session. The first call cancels any in-flight
// navigation and tears down the session's connections; later calls are
// no-ops. This is the single release point for the execution context, so
// double-release is impossible by construction.
func (s *probeSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.transport.CloseIdleConnections()
	return nil
}

// applyDeviceProfile sets the request headers for the emulated device.
func (s *probeSession) applyDeviceProfile(req *http.Request) {
	if s.settings.Device == domain.DeviceMobile {
		req.Header.Set("User-Agent", mobileUserAgent)
		req.Header.Set("Sec-CH-UA-Mobile", "?1")
	} else {
		req.Header.Set("User-Agent", desktopUserAgent)
		req.Header.Set("Sec-CH-UA-Mobile", "?0")
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// classifyNavError wraps a navigation error with the sentinel the retry
// policy keys off. Network-class failures (refused, reset, unreachable,
// DNS, protocol-level timeout) are retryable; everything else is an engine
// failure.
func (s *probeSession) classifyNavError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: navigation exceeded %s timeout", ErrNetwork, s.settings.Timeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("navigation canceled: %w", context.Canceled)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: DNS lookup failed for %s: %v", ErrNetwork, dnsErr.Name, dnsErr)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, opErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, netErr)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: connection closed mid-transfer: %v", ErrNetwork, err)
	}

	// Unwrap url.Error for a cleaner message; anything not network-shaped
	// (bad scheme, redirect loop, malformed response) is terminal.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrEngine, urlErr.Err)
	}
	return fmt.Errorf("%w: %v", ErrEngine, err)
}

// traceRecorder accumulates httptrace callbacks into navigation phases.
// Callbacks can fire from multiple goroutines and, on redirect chains,
// multiple times; connection phases accumulate and response markers keep
// the latest hop.
type traceRecorder struct {
	mu sync.Mutex

	dnsStart     time.Time
	dns          time.Duration
	connectStart time.Time
	connect      time.Duration
	tlsStart     time.Time
	tls          time.Duration
	firstByte    time.Time
}

func newTraceRecorder() *traceRecorder {
	return &traceRecorder{}
}

func (r *traceRecorder) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			r.mu.Lock()
			r.dnsStart = time.Now()
			r.mu.Unlock()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			r.mu.Lock()
			if !r.dnsStart.IsZero() {
				r.dns += time.Since(r.dnsStart)
			}
			r.mu.Unlock()
		},
		ConnectStart: func(network, addr string) {
			r.mu.Lock()
			r.connectStart = time.Now()
			r.mu.Unlock()
		},
		ConnectDone: func(network, addr string, err error) {
			r.mu.Lock()
			if !r.connectStart.IsZero() {
				r.connect += time.Since(r.connectStart)
			}
			r.mu.Unlock()
		},
		TLSHandshakeStart: func() {
			r.mu.Lock()
			r.tlsStart = time.Now()
			r.mu.Unlock()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			r.mu.Lock()
			if !r.tlsStart.IsZero() {
				r.tls += time.Since(r.tlsStart)
			}
			r.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			r.mu.Lock()
			r.firstByte = time.Now()
			r.mu.Unlock()
		},
	}
}

// timing assembles the phase breakdown for a navigation that started and
// finished at the given instants.
func (r *traceRecorder) timing(started, finished time.Time) domain.Timing {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := domain.Timing{
		DNS:     r.dns,
		Connect: r.connect,
		TLS:     r.tls,
		Total:   finished.Sub(started),
	}
	if !r.firstByte.IsZero() {
		t.TTFB = r.firstByte.Sub(started)
		t.Transfer = finished.Sub(r.firstByte)
	}
	return t
}
