package engine

import (
	"context"
	"sync/atomic"

	"github.com/pharos-audit/pharos/internal/domain"
)

// MockEngine is a simple implementation of the Engine interface for testing
type MockEngine struct {
	NewSessionFn func(settings domain.AuditSettings) (Session, error)

	// SessionsOpened counts NewSession calls across goroutines.
	SessionsOpened atomic.Int64
}

// NewMockEngine creates a MockEngine whose sessions succeed with a minimal report
func NewMockEngine() *MockEngine {
	e := &MockEngine{}
	e.NewSessionFn = func(settings domain.AuditSettings) (Session, error) {
		return NewMockSession(settings), nil
	}
	return e
}

// NewSession allocates a mock session
func (e *MockEngine) NewSession(settings domain.AuditSettings) (Session, error) {
	e.SessionsOpened.Add(1)
	return e.NewSessionFn(settings)
}

// MockSession is a controllable Session for testing executor behavior
type MockSession struct {
	Settings domain.AuditSettings
	RunFn    func(ctx context.Context, targetURL string) (*domain.Report, error)
	CloseFn  func() error

	// Closes counts Close calls so tests can assert release-exactly-once.
	Closes atomic.Int64
}

// NewMockSession creates a MockSession that returns an empty successful report
func NewMockSession(settings domain.AuditSettings) *MockSession {
	s := &MockSession{Settings: settings}
	s.RunFn = func(ctx context.Context, targetURL string) (*domain.Report, error) {
		return &domain.Report{
			URL:      targetURL,
			FinalURL: targetURL,
			Device:   settings.Device,
			Score:    1,
		}, nil
	}
	s.CloseFn = func() error { return nil }
	return s
}

// Run executes the injected run function
func (s *MockSession) Run(ctx context.Context, targetURL string) (*domain.Report, error) {
	return s.RunFn(ctx, targetURL)
}

// Close records the release and executes the injected close function
func (s *MockSession) Close() error {
	s.Closes.Add(1)
	return s.CloseFn()
}
