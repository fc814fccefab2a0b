package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/obidl-go/internal/domain"
)

func newTestController(maxAttempts int, base, max time.Duration) (*RetryController, *[]time.Duration) {
	rc := NewRetryController(domain.RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   base,
		MaxDelay:    max,
	}, nil)

	slept := &[]time.Duration{}
	rc.jitter = func() float64 { return 0 }
	rc.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return rc, slept
}

func retryableAttempt() domain.StrategyAttempt {
	return domain.FailAttempt(domain.KindProtocolClient, time.Now(),
		domain.NewError(domain.ErrorRetryable, "transient"))
}

func TestRetryController_SuccessFirstTry(t *testing.T) {
	rc, slept := newTestController(5, time.Second, time.Minute)

	attempts := rc.Run(context.Background(), func(prior domain.StrategyAttempt) domain.StrategyAttempt {
		return domain.SucceedAttempt(domain.KindProtocolClient, time.Now(), "/tmp/f", 10)
	})

	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Succeeded())
	assert.Empty(t, *slept)
}

func TestRetryController_RetriesThenSucceeds(t *testing.T) {
	rc, slept := newTestController(5, time.Second, time.Minute)

	calls := 0
	attempts := rc.Run(context.Background(), func(prior domain.StrategyAttempt) domain.StrategyAttempt {
		calls++
		if calls < 3 {
			return retryableAttempt()
		}
		return domain.SucceedAttempt(domain.KindProtocolClient, time.Now(), "/tmp/f", 10)
	})

	require.Len(t, attempts, 3)
	assert.True(t, attempts[2].Succeeded())
	assert.Len(t, *slept, 2)
}

func TestRetryController_FatalStopsImmediately(t *testing.T) {
	rc, slept := newTestController(5, time.Second, time.Minute)

	attempts := rc.Run(context.Background(), func(prior domain.StrategyAttempt) domain.StrategyAttempt {
		return domain.FailAttempt(domain.KindProtocolClient, time.Now(),
			domain.NewError(domain.ErrorFatal, "gone"))
	})

	require.Len(t, attempts, 1)
	assert.Equal(t, domain.OutcomeFatal, attempts[0].Outcome)
	assert.Empty(t, *slept)
}

func TestRetryController_BudgetExhaustedConvertsToFatal(t *testing.T) {
	rc, _ := newTestController(3, time.Second, time.Minute)

	attempts := rc.Run(context.Background(), func(prior domain.StrategyAttempt) domain.StrategyAttempt {
		return retryableAttempt()
	})

	require.Len(t, attempts, 3)
	last := attempts[len(attempts)-1]
	assert.Equal(t, domain.OutcomeFatal, last.Outcome)
	assert.Contains(t, last.ErrorDetail, "retry budget exhausted")
}

func TestRetryController_DelayGrowsExponentially(t *testing.T) {
	rc, _ := newTestController(10, 2*time.Second, 60*time.Second)

	// base*2^(k-2), no jitter
	assert.Equal(t, 2*time.Second, rc.Delay(2, nil))
	assert.Equal(t, 4*time.Second, rc.Delay(3, nil))
	assert.Equal(t, 8*time.Second, rc.Delay(4, nil))
	assert.Equal(t, 16*time.Second, rc.Delay(5, nil))

	// capped at maxDelay
	assert.Equal(t, 60*time.Second, rc.Delay(8, nil))
	assert.Equal(t, 60*time.Second, rc.Delay(20, nil))
}

func TestRetryController_JitterAddsUpToBase(t *testing.T) {
	rc, _ := newTestController(10, 2*time.Second, 60*time.Second)
	rc.jitter = func() float64 { return 0.5 }

	assert.Equal(t, 3*time.Second, rc.Delay(2, nil))
}

func TestRetryController_RetryAfterHintOverrides(t *testing.T) {
	rc, _ := newTestController(10, 2*time.Second, 60*time.Second)

	hint := domain.NewError(domain.ErrorRetryable, "rate limited").WithRetryAfter(45 * time.Second)

	// hint longer than computed wins
	assert.Equal(t, 45*time.Second, rc.Delay(2, hint))

	// computed longer than hint wins
	short := domain.NewError(domain.ErrorRetryable, "rate limited").WithRetryAfter(time.Second)
	assert.Equal(t, 8*time.Second, rc.Delay(4, short))
}

func TestRetryController_CancelDuringBackoff(t *testing.T) {
	rc, _ := newTestController(5, time.Second, time.Minute)
	rc.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	attempts := rc.Run(context.Background(), func(prior domain.StrategyAttempt) domain.StrategyAttempt {
		return retryableAttempt()
	})

	require.Len(t, attempts, 1)
	last := attempts[0]
	assert.Equal(t, domain.OutcomeFatal, last.Outcome)
	assert.True(t, domain.IsKind(last.Err, domain.ErrorCancelled))
}

func TestRetryController_PriorAttemptIsPassedOn(t *testing.T) {
	rc, _ := newTestController(3, time.Second, time.Minute)

	var priors []domain.StrategyAttempt
	rc.Run(context.Background(), func(prior domain.StrategyAttempt) domain.StrategyAttempt {
		priors = append(priors, prior)
		a := retryableAttempt()
		a.PartialKept = true
		a.ResumeOffset = int64(len(priors)) * 100
		return a
	})

	require.Len(t, priors, 3)
	assert.False(t, priors[0].PartialKept)
	assert.Equal(t, int64(100), priors[1].ResumeOffset)
	assert.Equal(t, int64(200), priors[2].ResumeOffset)
}
