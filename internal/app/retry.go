package app

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
)

// RetryController wraps a single strategy with bounded retry and
// exponential backoff. Only retryable outcomes are retried; once the
// budget is exhausted the final outcome is converted to fatal so the
// fallback policy advances instead of looping.
type RetryController struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger

	// test hooks
	jitter func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryController creates a controller from the retry budget config
func NewRetryController(cfg domain.RetryConfig, log *zap.Logger) *RetryController {
	if log == nil {
		log = zap.NewNop()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryController{
		maxAttempts: maxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		logger:      log,
		jitter:      rand.Float64,
		sleep:       sleepContext,
	}
}

// Run invokes fn until it succeeds, fails fatally, or the attempt budget
// runs out. fn receives the previous attempt so strategies can resume from
// partial state. All attempts are returned in order; when the budget is
// exhausted on a retryable failure the last attempt's outcome is converted
// to fatal.
func (rc *RetryController) Run(ctx context.Context, fn func(prior domain.StrategyAttempt) domain.StrategyAttempt) []domain.StrategyAttempt {
	var attempts []domain.StrategyAttempt
	var prior domain.StrategyAttempt

	for k := 1; k <= rc.maxAttempts; k++ {
		if k > 1 {
			delay := rc.Delay(k, prior.Err)
			rc.logger.Info("Retrying strategy",
				zap.Int("attempt", k),
				zap.Int("max_attempts", rc.maxAttempts),
				zap.Duration("delay", delay))
			if err := rc.sleep(ctx, delay); err != nil {
				last := &attempts[len(attempts)-1]
				last.Outcome = domain.OutcomeFatal
				last.Err = domain.WrapError(domain.ErrorCancelled, "download cancelled during backoff", err)
				last.ErrorDetail = last.Err.Error()
				return attempts
			}
		}

		attempt := fn(prior)
		attempts = append(attempts, attempt)

		if attempt.Outcome != domain.OutcomeRetryable {
			return attempts
		}
		prior = attempt
	}

	// Budget exhausted on consecutive retryable failures
	last := &attempts[len(attempts)-1]
	last.Outcome = domain.OutcomeFatal
	last.Err = domain.WrapError(domain.ErrorFatal, "retry budget exhausted", last.Err)
	last.ErrorDetail = last.Err.Error()
	return attempts
}

// Delay computes the backoff before attempt k (k >= 2):
// min(maxDelay, base*2^(k-2)) plus jitter in [0, base). A service-declared
// rate-limit wait hint on the previous error overrides the computed delay
// when it is longer.
func (rc *RetryController) Delay(k int, priorErr error) time.Duration {
	exp := math.Pow(2, float64(k-2))
	computed := time.Duration(float64(rc.baseDelay) * exp)
	if computed > rc.maxDelay || computed < 0 {
		computed = rc.maxDelay
	}
	computed += time.Duration(rc.jitter() * float64(rc.baseDelay))

	var de *domain.DownloadError
	if errors.As(priorErr, &de) && de.RetryAfter > computed {
		return de.RetryAfter
	}
	return computed
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
