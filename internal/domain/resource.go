package domain

import "strings"

// ResourceType is the coarse tag carried by every port
type ResourceType string

const (
	ResourceText    ResourceType = "text"
	ResourceImage   ResourceType = "image"
	ResourceVideo   ResourceType = "video"
	ResourceAudio   ResourceType = "audio"
	ResourceMask    ResourceType = "mask"
	ResourceConfig  ResourceType = "config"
	ResourceJSON    ResourceType = "json"
	ResourceDataset ResourceType = "dataset"
	ResourceAny     ResourceType = "any" // Wildcard, accepted by and accepted from everything
)

// ResourceSubtype narrows a ResourceType (image.ref vs image.first_frame)
type ResourceSubtype string

const (
	// text
	SubtypePrompt  ResourceSubtype = "prompt"
	SubtypeScript  ResourceSubtype = "script"
	SubtypeLyrics  ResourceSubtype = "lyrics"
	SubtypeTTSText ResourceSubtype = "tts_text"

	// image
	SubtypeImage      ResourceSubtype = "image"
	SubtypeRef        ResourceSubtype = "ref"
	SubtypeFirstFrame ResourceSubtype = "first_frame"
	SubtypeLastFrame  ResourceSubtype = "last_frame"
	SubtypeThumb      ResourceSubtype = "thumb"

	// video
	SubtypeVideo    ResourceSubtype = "video"
	SubtypeRefVideo ResourceSubtype = "ref_video"

	// audio
	SubtypeAudio    ResourceSubtype = "audio"
	SubtypeRefAudio ResourceSubtype = "ref_audio"
	SubtypeVoice    ResourceSubtype = "voice"

	SubtypeMask ResourceSubtype = "mask"

	// config
	SubtypeModel     ResourceSubtype = "model"
	SubtypeStyle     ResourceSubtype = "style"
	SubtypeRatio     ResourceSubtype = "ratio"
	SubtypeQuality   ResourceSubtype = "quality"
	SubtypeSafety    ResourceSubtype = "safety"
	SubtypeGenParams ResourceSubtype = "gen_params"

	// json
	SubtypeMeta    ResourceSubtype = "meta"
	SubtypePayload ResourceSubtype = "payload"

	SubtypeDataset ResourceSubtype = "dataset"
)

// PortDirection tells which side of a node a port sits on
type PortDirection string

const (
	PortInput  PortDirection = "input"  // Left edge, edge target
	PortOutput PortDirection = "output" // Right edge, edge source
)

// Opposite returns the other direction
func (d PortDirection) Opposite() PortDirection {
	if d == PortInput {
		return PortOutput
	}
	return PortInput
}

// PortDefinition describes one typed socket of a node type.
// Definitions are declared per node type and never change per instance.
type PortDefinition struct {
	ID      string          `json:"id"`
	Label   string          `json:"label"`
	Type    ResourceType    `json:"type"`
	Subtype ResourceSubtype `json:"subtype,omitempty"`

	// Multiple marks an input that accepts more than one incoming edge.
	// Values arrive as a list in edge order.
	Multiple bool `json:"multiple,omitempty"`
}

// IsCompatible reports whether an output port may feed an input port.
//
// The wildcard type matches anything. Otherwise types must be equal, and a
// subtype is only enforced when both sides declare one: an output without a
// subtype satisfies any input subtype.
func IsCompatible(output, input PortDefinition) bool {
	if output.Type == ResourceAny || input.Type == ResourceAny {
		return true
	}
	if output.Type != input.Type {
		return false
	}
	if input.Subtype != "" && output.Subtype != "" && input.Subtype != output.Subtype {
		return false
	}
	return true
}

// MatchScore ranks how well an output fits an input when the user drops a
// connection without naming handles. Negative scores are never connected.
func MatchScore(output, input PortDefinition) int {
	if output.Type == ResourceAny || input.Type == ResourceAny {
		return 5
	}
	if output.Type != input.Type {
		return -1
	}

	score := 10
	if input.Subtype != "" && output.Subtype != "" {
		if input.Subtype != output.Subtype {
			return -1
		}
		score += 5
	}

	// Image producers prefer reference-style sockets
	if output.Type == ResourceImage {
		id := strings.ToLower(input.ID)
		if strings.Contains(id, "image") || strings.Contains(id, "ref") {
			score += 5
		}
	}
	return score
}

// BestMatch picks the highest scoring compatible pair. Ties keep declaration
// order (first output, then first input). ok is false when nothing fits.
func BestMatch(outputs, inputs []PortDefinition) (output, input PortDefinition, ok bool) {
	best := -1
	for _, out := range outputs {
		for _, in := range inputs {
			if !IsCompatible(out, in) {
				continue
			}
			if s := MatchScore(out, in); s > best {
				best = s
				output, input, ok = out, in, true
			}
		}
	}
	return output, input, ok
}

// FindPort returns the port with the given id
func FindPort(ports []PortDefinition, id string) (PortDefinition, bool) {
	for _, p := range ports {
		if p.ID == id {
			return p, true
		}
	}
	return PortDefinition{}, false
}

// PortIndex returns the position of id within ports, or 0 when absent
// so that geometry falls back to the first socket.
func PortIndex(ports []PortDefinition, id string) int {
	for i, p := range ports {
		if p.ID == id {
			return i
		}
	}
	return 0
}
