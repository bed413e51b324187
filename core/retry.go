package core

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryConfig contains retry configuration for an operation
type RetryConfig struct {
	MaxRetries       int
	RetryDelay       time.Duration
	RetryExponential bool
	RetryMaxDelay    time.Duration
}

// DefaultPullRetryConfig is used for image pulls when nothing else is configured.
func DefaultPullRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       2,
		RetryDelay:       time.Second,
		RetryExponential: true,
		RetryMaxDelay:    30 * time.Second,
	}
}

// RetryExecutor wraps an operation with retry logic
type RetryExecutor struct {
	logger Logger
	config RetryConfig

	// IsRetryable decides whether a failed attempt is retried.
	IsRetryable func(error) bool

	sleep func(context.Context, time.Duration) error
}

// NewRetryExecutor creates a new retry executor
func NewRetryExecutor(logger Logger, config RetryConfig) *RetryExecutor {
	return &RetryExecutor{
		logger:      logger,
		config:      config,
		IsRetryable: IsRetryableError,
		sleep:       sleepContext,
	}
}

// Execute runs fn until it succeeds, fails with a non-retryable error, the
// retries are exhausted or ctx is done.
func (re *RetryExecutor) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	config := re.config

	if config.MaxRetries <= 0 {
		return fn(ctx)
	}

	var lastErr error
	attempt := 0

	for attempt <= config.MaxRetries {
		err := fn(ctx)

		if err == nil {
			if attempt > 0 {
				re.logger.Noticef("%s succeeded after %d retries", name, attempt)
			}
			return nil
		}

		lastErr = err

		if !re.IsRetryable(err) {
			return err
		}

		if attempt >= config.MaxRetries {
			break
		}

		delay := re.calculateDelay(attempt)

		re.logger.Warningf("%s failed (attempt %d/%d): %v. Retrying in %v",
			name, attempt+1, config.MaxRetries+1, err, delay)

		if err := re.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		attempt++
	}

	re.logger.Errorf("%s failed after %d attempts: %v", name, config.MaxRetries+1, lastErr)

	return fmt.Errorf("%s failed after %d attempts: %w", name, config.MaxRetries+1, lastErr)
}

// calculateDelay calculates the retry delay based on configuration
func (re *RetryExecutor) calculateDelay(attempt int) time.Duration {
	delay := re.config.RetryDelay

	if re.config.RetryExponential {
		// Exponential backoff: delay * 2^attempt
		delay = time.Duration(float64(re.config.RetryDelay) * math.Pow(2, float64(attempt)))

		if re.config.RetryMaxDelay > 0 && delay > re.config.RetryMaxDelay {
			delay = re.config.RetryMaxDelay
		}
	}

	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
