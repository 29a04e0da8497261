// Package generation defines the boundary to external content generation
// providers.
//
// Node definitions depend only on the Service interface. Concrete providers
// are wrapped with RetryService and RateLimitedService; the Simulator stands
// in for a provider in tests, offline runs and demos.
package generation

import (
	"context"
	"errors"
)

// Model identifiers understood by providers
const (
	ModelVideoFast  = "veo-3.1-fast-generate-preview"
	ModelVideoHQ    = "veo-3.1-generate-preview"
	ModelImageFlash = "gemini-2.5-flash-image"
	ModelImagePro   = "gemini-3-pro-image-preview"
	ModelTextFlash  = "gemini-3-flash-preview"
	ModelTextPro    = "gemini-3-pro-preview"
	ModelSpeech     = "gemini-2.5-flash-preview-tts"
)

var (
	// ErrInvalidRequest marks requests a provider will never accept; they are
	// not retried
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrUnavailable marks transient provider failures
	ErrUnavailable = errors.New("generation provider unavailable")
)

// TextRequest asks for a completion
type TextRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

// ImageRequest asks for a still image
type ImageRequest struct {
	Model           string   `json:"model,omitempty"`
	Prompt          string   `json:"prompt"`
	AspectRatio     string   `json:"aspectRatio,omitempty"`
	Resolution      string   `json:"resolution,omitempty"`
	ReferenceImages []string `json:"referenceImages,omitempty"`
}

// VideoRequest asks for a clip
type VideoRequest struct {
	Model       string `json:"model,omitempty"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	StartImage  string `json:"startImage,omitempty"`
	EndImage    string `json:"endImage,omitempty"`
	WithAudio   bool   `json:"withAudio,omitempty"`
}

// SpeechRequest asks for narration or music
type SpeechRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// ScriptRequest asks for a scene breakdown of a concept
type ScriptRequest struct {
	Model   string `json:"model,omitempty"`
	Concept string `json:"concept"`
	Role    string `json:"role,omitempty"`
	// Context is the rendered reference block. Providers append it to the
	// prompt; it is never part of the scene breakdown.
	Context string `json:"context,omitempty"`
}

// Service generates content. Each method returns a media handle (URL or
// data URI) or text, or fails with a descriptive error.
type Service interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
	GenerateVideo(ctx context.Context, req VideoRequest) (string, error)
	GenerateSpeech(ctx context.Context, req SpeechRequest) (string, error)
	GenerateScript(ctx context.Context, req ScriptRequest) ([]string, error)
}

// IsRetryable reports whether a failed call is worth repeating. A deadline
// is retryable because it usually comes from a per-attempt timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrInvalidRequest) {
		return false
	}
	return true
}
