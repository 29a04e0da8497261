package generation

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures retry behaviour for generation calls
type RetryConfig struct {
	MaxRetries int           // Retry attempts after the first call (0 = no retries)
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Cap for the exponential delay
	Timeout    time.Duration // Per-attempt timeout (0 = none)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Timeout:    5 * time.Minute,
	}
}

// RetryService wraps a Service with per-attempt timeouts and exponential
// backoff. Errors that IsRetryable rejects stop immediately.
type RetryService struct {
	inner  Service
	config *RetryConfig
}

// NewRetryService wraps inner. A nil config uses DefaultRetryConfig.
func NewRetryService(inner Service, config *RetryConfig) *RetryService {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryService{inner: inner, config: config}
}

func (r *RetryService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.RetryDelay
	b.MaxInterval = r.config.MaxDelay
	return b
}

func withRetry[T any](ctx context.Context, r *RetryService, op string, call func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.config.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		}
		defer cancel()

		v, err := call(attemptCtx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, next time.Duration) {
		log.Printf("Generation %s attempt %d failed, retrying in %s: %v", op, attempt, next, err)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.config.MaxRetries+1)),
		backoff.WithNotify(notify),
	)
}

// GenerateText implements Service
func (r *RetryService) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	return withRetry(ctx, r, "text", func(ctx context.Context) (string, error) {
		return r.inner.GenerateText(ctx, req)
	})
}

// GenerateImage implements Service
func (r *RetryService) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	return withRetry(ctx, r, "image", func(ctx context.Context) (string, error) {
		return r.inner.GenerateImage(ctx, req)
	})
}

// GenerateVideo implements Service
func (r *RetryService) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	return withRetry(ctx, r, "video", func(ctx context.Context) (string, error) {
		return r.inner.GenerateVideo(ctx, req)
	})
}

// GenerateSpeech implements Service
func (r *RetryService) GenerateSpeech(ctx context.Context, req SpeechRequest) (string, error) {
	return withRetry(ctx, r, "speech", func(ctx context.Context) (string, error) {
		return r.inner.GenerateSpeech(ctx, req)
	})
}

// GenerateScript implements Service
func (r *RetryService) GenerateScript(ctx context.Context, req ScriptRequest) ([]string, error) {
	return withRetry(ctx, r, "script", func(ctx context.Context) ([]string, error) {
		return r.inner.GenerateScript(ctx, req)
	})
}
