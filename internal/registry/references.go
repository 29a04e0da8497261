package registry

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"flowcanvas/internal/domain"
)

// Truncate cuts s to at most limit runes, marking the cut with "...".
// A non-positive limit keeps s whole.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// bracket renders "[Title: a b c ]"
func bracket(title string, items []string) string {
	return "[" + title + ": " + strings.Join(items, " ") + " ]"
}

// ordinal renders 1st, 2nd, 3rd, 4th...
func ordinal(n int) string {
	suffix := "th"
	switch n % 10 {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	if n%100 >= 11 && n%100 <= 13 {
		suffix = "th"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// referenceContext renders the mention list appended to text prompts.
// Media references are named rather than embedded.
func referenceContext(refs []Reference, limit int) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n[References Context]:\n")
	for _, ref := range refs {
		text := ref.Value
		if ref.Media {
			text = fmt.Sprintf("(Image/Data: %s)", ref.Label)
		}
		fmt.Fprintf(&b, "@%s: %s\n", ref.Label, Truncate(text, limit))
	}
	return b.String()
}

var mediaExtensions = map[string]domain.ResourceType{
	".png":  domain.ResourceImage,
	".jpg":  domain.ResourceImage,
	".jpeg": domain.ResourceImage,
	".webp": domain.ResourceImage,
	".gif":  domain.ResourceImage,
	".mp4":  domain.ResourceVideo,
	".webm": domain.ResourceVideo,
	".mov":  domain.ResourceVideo,
	".wav":  domain.ResourceAudio,
	".mp3":  domain.ResourceAudio,
	".ogg":  domain.ResourceAudio,
}

// GuessKind classifies a payload for nodes whose output type is any
func GuessKind(s string) domain.ResourceType {
	switch {
	case s == "":
		return domain.ResourceAny
	case strings.HasPrefix(s, "data:image/"):
		return domain.ResourceImage
	case strings.HasPrefix(s, "data:video/"):
		return domain.ResourceVideo
	case strings.HasPrefix(s, "data:audio/"):
		return domain.ResourceAudio
	case !domain.IsMedia(s):
		return domain.ResourceText
	}

	p := s
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if kind, ok := mediaExtensions[strings.ToLower(path.Ext(p))]; ok {
		return kind
	}
	return domain.ResourceAny
}
