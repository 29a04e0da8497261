package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestSimulatorDeterministic(t *testing.T) {
	sim := NewSimulator(0)
	ctx := context.Background()
	req := ImageRequest{Prompt: "A cat", AspectRatio: "1:1", Model: ModelImageFlash}

	a, err := sim.GenerateImage(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := sim.GenerateImage(ctx, req)
	if a != b {
		t.Errorf("expected identical handles, got %s and %s", a, b)
	}
	if !strings.HasPrefix(a, "https://") || !strings.HasSuffix(a, ".png") {
		t.Errorf("unexpected handle %s", a)
	}

	c, _ := sim.GenerateImage(ctx, ImageRequest{Prompt: "A dog", AspectRatio: "1:1"})
	if c == a {
		t.Error("expected a different prompt to give a different handle")
	}

	if got := len(sim.Calls()); got != 3 {
		t.Errorf("expected 3 recorded calls, got %d", got)
	}
}

func TestSimulatorValidation(t *testing.T) {
	sim := NewSimulator(0)
	ctx := context.Background()

	if _, err := sim.GenerateVideo(ctx, VideoRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := sim.GenerateSpeech(ctx, SpeechRequest{Text: "  "}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := sim.GenerateImage(ctx, ImageRequest{ReferenceImages: []string{"data:image/png;base64,xx"}}); err != nil {
		t.Errorf("expected reference-only image to be accepted, got %v", err)
	}
}

func TestSimulatorScript(t *testing.T) {
	sim := NewSimulator(0)
	scenes, err := sim.GenerateScript(context.Background(), ScriptRequest{
		Concept: "A cat wakes up. It chases a bird!",
		Context: "\n[References Context]:\n@Ref: (Image/Data: Ref)\n",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d: %v", len(scenes), scenes)
	}
	if scenes[0] != "Scene 1: A cat wakes up." {
		t.Errorf("unexpected first scene %q", scenes[0])
	}
}

func TestSimulatorHonoursContext(t *testing.T) {
	sim := NewSimulator(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.GenerateText(ctx, TextRequest{Prompt: "hi"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func fastRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestRetryService(t *testing.T) {
	t.Run("recovers from transient failures", func(t *testing.T) {
		var calls int32
		sim := NewSimulator(0)
		sim.Fail = func(op string) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return fmt.Errorf("%w: 503", ErrUnavailable)
			}
			return nil
		}

		svc := NewRetryService(sim, fastRetry(3))
		out, err := svc.GenerateText(context.Background(), TextRequest{Prompt: "hello   world"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "hello world" {
			t.Errorf("expected 'hello world', got %q", out)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int32
		sim := NewSimulator(0)
		sim.Fail = func(op string) error {
			atomic.AddInt32(&calls, 1)
			return ErrUnavailable
		}

		svc := NewRetryService(sim, fastRetry(2))
		_, err := svc.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("invalid requests are not retried", func(t *testing.T) {
		sim := NewSimulator(0)
		svc := NewRetryService(sim, fastRetry(5))

		_, err := svc.GenerateSpeech(context.Background(), SpeechRequest{})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		svc := NewRetryService(NewSimulator(0), nil)
		if svc.config.MaxRetries != 3 {
			t.Errorf("expected 3 default retries, got %d", svc.config.MaxRetries)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"invalid", fmt.Errorf("wrap: %w", ErrInvalidRequest), false},
		{"unavailable", ErrUnavailable, true},
		{"unknown", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRateLimitedService(t *testing.T) {
	t.Run("passes calls through", func(t *testing.T) {
		sim := NewSimulator(0)
		svc := NewRateLimitedService(sim, 0, 1)
		for i := 0; i < 5; i++ {
			if _, err := svc.GenerateText(context.Background(), TextRequest{Prompt: "x"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if len(sim.Calls()) != 5 {
			t.Errorf("expected 5 calls, got %d", len(sim.Calls()))
		}
	})

	t.Run("wait respects context", func(t *testing.T) {
		svc := NewRateLimitedService(NewSimulator(0), 0.001, 1)
		ctx := context.Background()
		if _, err := svc.GenerateText(ctx, TextRequest{Prompt: "first"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		if _, err := svc.GenerateText(ctx, TextRequest{Prompt: "second"}); err == nil {
			t.Error("expected the second call to fail while throttled")
		}
	})
}
