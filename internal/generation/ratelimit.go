package generation

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedService throttles calls to an inner Service with a token bucket
// shared by every operation
type RateLimitedService struct {
	inner   Service
	limiter *rate.Limiter
}

// NewRateLimitedService allows rps calls per second with the given burst.
// A non-positive rps disables throttling.
func NewRateLimitedService(inner Service, rps float64, burst int) *RateLimitedService {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedService{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (s *RateLimitedService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// GenerateText implements Service
func (s *RateLimitedService) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return s.inner.GenerateText(ctx, req)
}

// GenerateImage implements Service
func (s *RateLimitedService) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return s.inner.GenerateImage(ctx, req)
}

// GenerateVideo implements Service
func (s *RateLimitedService) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return s.inner.GenerateVideo(ctx, req)
}

// GenerateSpeech implements Service
func (s *RateLimitedService) GenerateSpeech(ctx context.Context, req SpeechRequest) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return s.inner.GenerateSpeech(ctx, req)
}

// GenerateScript implements Service
func (s *RateLimitedService) GenerateScript(ctx context.Context, req ScriptRequest) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.GenerateScript(ctx, req)
}
