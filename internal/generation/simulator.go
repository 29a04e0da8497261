package generation

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Call records one request seen by the Simulator
type Call struct {
	Op      string
	Request any
}

// Simulator is an offline Service. It returns deterministic handles derived
// from the request so repeated runs produce the same graph state.
type Simulator struct {
	// Delay is slept before each response, honouring ctx
	Delay time.Duration
	// BaseURL prefixes every media handle
	BaseURL string
	// Fail, when set, is consulted before each call; a non-nil error is
	// returned as the call's result
	Fail func(op string) error

	mu    sync.Mutex
	calls []Call
}

// NewSimulator creates a simulator with the given response delay
func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{Delay: delay, BaseURL: "https://sim.flowcanvas.local"}
}

// Calls returns a copy of the recorded calls
func (s *Simulator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Simulator) begin(ctx context.Context, op string, req any) error {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Op: op, Request: req})
	fail := s.Fail
	s.mu.Unlock()

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if fail != nil {
		return fail(op)
	}
	return nil
}

func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%x", sum[:6])
}

func (s *Simulator) handle(kind, ext string, parts ...string) string {
	return fmt.Sprintf("%s/%s/%s.%s", s.BaseURL, kind, digest(parts...), ext)
}

// GenerateText echoes a tidied prompt
func (s *Simulator) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidRequest)
	}
	if err := s.begin(ctx, "text", req); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(req.Prompt), " "), nil
}

// GenerateImage returns an image URL
func (s *Simulator) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" && len(req.ReferenceImages) == 0 {
		return "", fmt.Errorf("%w: image needs a prompt or reference", ErrInvalidRequest)
	}
	if err := s.begin(ctx, "image", req); err != nil {
		return "", err
	}
	parts := append([]string{req.Model, req.Prompt, req.AspectRatio, req.Resolution}, req.ReferenceImages...)
	return s.handle("image", "png", parts...), nil
}

// GenerateVideo returns a video URL
func (s *Simulator) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" && req.StartImage == "" && req.EndImage == "" {
		return "", fmt.Errorf("%w: video needs a prompt or frame", ErrInvalidRequest)
	}
	if err := s.begin(ctx, "video", req); err != nil {
		return "", err
	}
	return s.handle("video", "mp4", req.Model, req.Prompt, req.AspectRatio, req.StartImage, req.EndImage, fmt.Sprint(req.Duration)), nil
}

// GenerateSpeech returns an audio URL
func (s *Simulator) GenerateSpeech(ctx context.Context, req SpeechRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("%w: empty text", ErrInvalidRequest)
	}
	if err := s.begin(ctx, "speech", req); err != nil {
		return "", err
	}
	return s.handle("audio", "wav", req.Model, req.Text, req.Voice, req.Kind), nil
}

// GenerateScript splits the concept into numbered scenes, one per sentence
func (s *Simulator) GenerateScript(ctx context.Context, req ScriptRequest) ([]string, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, fmt.Errorf("%w: empty concept", ErrInvalidRequest)
	}
	if err := s.begin(ctx, "script", req); err != nil {
		return nil, err
	}

	sentences := strings.FieldsFunc(req.Concept, func(r rune) bool {
		return r == '.' || r == '\n' || r == '!' || r == '?'
	})
	var scenes []string
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		scenes = append(scenes, fmt.Sprintf("Scene %d: %s.", len(scenes)+1, sentence))
	}
	if len(scenes) == 0 {
		scenes = []string{"Scene 1: " + strings.TrimSpace(req.Concept)}
	}
	return scenes, nil
}
