package audit

import (
	"context"
	"errors"
	"net"

	"github.com/pharos-audit/pharos/internal/domain"
	"github.com/pharos-audit/pharos/internal/engine"
)

// Classify maps an attempt error onto the failure kind the retry policy
// keys off. Classification is pure: it inspects the error chain and
// nothing else, so the same error always classifies the same way.
//
// Network and timeout failures are worth one retry; a force-killed attempt
// left no execution context behind, so retrying it is safe. Engine
// failures and cancellation are terminal.
func Classify(err error) domain.FailureKind {
	switch {
	case errors.Is(err, ErrHardDeadline):
		return domain.FailureTimeout
	case errors.Is(err, context.Canceled):
		return domain.FailureCanceled
	case errors.Is(err, engine.ErrNetwork):
		return domain.FailureNetwork
	case errors.Is(err, context.DeadlineExceeded):
		// A deadline that escaped the engine's own classification.
		return domain.FailureTimeout
	case errors.Is(err, engine.ErrEngine):
		return domain.FailureEngine
	}

	// Errors from engines that do not wrap the engine sentinels: fall back
	// to the transport's own classification.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.FailureNetwork
	}
	return domain.FailureEngine
}
