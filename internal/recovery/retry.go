// internal/recovery/retry.go
package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"go.uber.org/zap"
)

// RetryStrategy is the default recovery strategy: re-resolve missing elements
// with capped exponential backoff, retry timeouts once, and decline
// everything else. Hosts with richer context (routing, auth) supply their own
// Strategy instead.
type RetryStrategy struct {
	resolver *dom.Resolver
	logger   *zap.Logger

	// MaxAttempts bounds element re-resolution tries.
	MaxAttempts int
	// BaseDelay is the first backoff step; each retry doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NewRetryStrategy builds the default strategy around a resolver.
func NewRetryStrategy(resolver *dom.Resolver, logger *zap.Logger) *RetryStrategy {
	return &RetryStrategy{
		resolver:    resolver,
		logger:      logger.Named("retry"),
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// OnElementNotFound retries the lookup with backoff, succeeding as soon as
// the selector resolves to a visible element.
func (s *RetryStrategy) OnElementNotFound(ctx context.Context, err *ElementNotFoundError) error {
	if s.resolver == nil {
		return fmt.Errorf("no resolver attached")
	}

	delay := s.BaseDelay
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		el, findErr := s.resolver.FindElement(ctx, err.Selector, delay)
		if findErr != nil {
			return findErr
		}
		if el != nil && s.resolver.IsVisible(el) {
			s.logger.Debug("Element recovered on retry",
				zap.String("selector", err.Selector), zap.Int("attempt", attempt))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.MaxDelay {
			delay = s.MaxDelay
		}
	}
	return fmt.Errorf("element %q still unresolved after %d attempts", err.Selector, s.MaxAttempts)
}

// OnNavigationError declines; the engine has no routing authority.
func (s *RetryStrategy) OnNavigationError(ctx context.Context, err *NavigationError) error {
	return fmt.Errorf("navigation recovery requires a host strategy")
}

// OnPermissionError declines. The manager never calls this for permission
// errors since they are non-recoverable, but the hook must exist.
func (s *RetryStrategy) OnPermissionError(ctx context.Context, err *PermissionError) error {
	return fmt.Errorf("permission errors are not recoverable")
}

// OnTimeout retries the underlying wait once with the base delay.
func (s *RetryStrategy) OnTimeout(ctx context.Context, err *TimeoutError) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.BaseDelay):
	}
	if err.Operation == "" {
		return fmt.Errorf("timeout carries no retryable operation")
	}
	// The caller re-runs the operation after a recovered timeout; the
	// strategy's job here is only the pause.
	return nil
}

// OnGenericError declines unknown failures.
func (s *RetryStrategy) OnGenericError(ctx context.Context, tourID string, err error) error {
	return fmt.Errorf("no recovery for generic error: %w", err)
}
