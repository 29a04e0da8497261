package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NodeType selects a node definition from the registry
type NodeType string

const (
	NodeTypeTextInput        NodeType = "text_input"
	NodeTypeImageInput       NodeType = "image_input"
	NodeTypeCharacterRef     NodeType = "character_ref"
	NodeTypeIconPrompt       NodeType = "icon_prompt"
	NodeTypeIconRefImage     NodeType = "icon_ref_image"
	NodeTypeImageGen         NodeType = "image_gen"
	NodeTypeVideoGen         NodeType = "video_gen"
	NodeTypeAudioGen         NodeType = "audio_gen"
	NodeTypeScriptAgent      NodeType = "script_agent"
	NodeTypeAIRefine         NodeType = "ai_refine"
	NodeTypePromptTranslator NodeType = "prompt_translator"
	NodeTypeVideoComposer    NodeType = "video_composer"
	NodeTypePreview          NodeType = "preview"
	NodeTypeImageReceiver    NodeType = "image_receiver"
	NodeTypeImageCompare     NodeType = "image_compare"
	NodeTypeImageMatting     NodeType = "image_matting"
	NodeTypeImageUpscale     NodeType = "image_upscale"
	NodeTypeColorGrade       NodeType = "color_grade"
	NodeTypeStickyNote       NodeType = "sticky_note"
	NodeTypeProIconGen       NodeType = "pro_icon_gen"
	NodeTypeProArtDirector   NodeType = "pro_art_director"
	NodeTypeGroup            NodeType = "group" // Reserved container type, no ports
)

// IsPro reports whether the type belongs to the pro template family
func (t NodeType) IsPro() bool {
	return strings.HasPrefix(string(t), "pro_")
}

// NodeStatus is the execution state of a node
type NodeStatus string

const (
	NodeStatusIdle    NodeStatus = "idle"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusDone    NodeStatus = "done"
	NodeStatusError   NodeStatus = "error"
)

// NodeData is the mutable payload of a node
type NodeData struct {
	Label        string       `json:"label"`
	Value        string       `json:"value,omitempty"`
	Settings     Settings     `json:"settings,omitempty"`
	OutputResult string       `json:"outputResult,omitempty"`
	OutputList   []string     `json:"outputList,omitempty"`
	OutputKind   ResourceType `json:"outputKind,omitempty"`
	AudioTrack   string       `json:"audioTrack,omitempty"`
	Status       NodeStatus   `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// Node is a positioned step in the graph. Width and height are derived from
// type and settings by the layout package, never stored.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Data     NodeData `json:"data"`
	ParentID string   `json:"parentId,omitempty"`
}

var defaultLabels = map[NodeType]string{
	NodeTypeTextInput:  "Prompt",
	NodeTypeImageInput: "Reference",
	NodeTypeImageGen:   "Visual Generator",
	NodeTypeVideoGen:   "Motion Generator",
	NodeTypeStickyNote: "Note",
}

// DefaultLabel derives a display label from a node type
func DefaultLabel(t NodeType) string {
	if label, ok := defaultLabels[t]; ok {
		return label
	}
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NewNode creates a node with a random id, default label and default settings
func NewNode(nodeType NodeType, x, y float64) *Node {
	return &Node{
		ID:   uuid.NewString(),
		Type: nodeType,
		X:    x,
		Y:    y,
		Data: NodeData{
			Label:    DefaultLabel(nodeType),
			Settings: Settings{"aspectRatio": "1:1"},
			Status:   NodeStatusIdle,
		},
	}
}

// IsGroup reports whether the node is a group container
func (n *Node) IsGroup() bool {
	return n.Type == NodeTypeGroup
}

// Position returns the node origin
func (n *Node) Position() Point {
	return Point{X: n.X, Y: n.Y}
}

// Move sets the node position. Nothing else changes.
func (n *Node) Move(x, y float64) {
	n.X = x
	n.Y = y
}

// Translate shifts the node by a delta
func (n *Node) Translate(dx, dy float64) {
	n.X += dx
	n.Y += dy
}

// Label returns the display label
func (n *Node) Label() string {
	return n.Data.Label
}

// Text returns the node's free text: settings.value wins over data.value
func (n *Node) Text() string {
	if s := n.Data.Settings.String("value"); s != "" {
		return s
	}
	return n.Data.Value
}

// DataPatch is a shallow update to NodeData. Nil fields are left untouched;
// a non-nil Settings replaces the settings map as a whole.
type DataPatch struct {
	Label        *string       `json:"label,omitempty"`
	Value        *string       `json:"value,omitempty"`
	Settings     Settings      `json:"settings,omitempty"`
	OutputResult *string       `json:"outputResult,omitempty"`
	OutputList   *[]string     `json:"outputList,omitempty"`
	OutputKind   *ResourceType `json:"outputKind,omitempty"`
	AudioTrack   *string       `json:"audioTrack,omitempty"`
	Status       *NodeStatus   `json:"status,omitempty"`
	ErrorMessage *string       `json:"errorMessage,omitempty"`
}

// UpdateData merges a patch into the node data. Applying the same patch
// twice yields the same state.
func (n *Node) UpdateData(p DataPatch) {
	d := &n.Data
	if p.Label != nil {
		d.Label = *p.Label
	}
	if p.Value != nil {
		d.Value = *p.Value
	}
	if p.Settings != nil {
		d.Settings = p.Settings.Clone()
	}
	if p.OutputResult != nil {
		d.OutputResult = *p.OutputResult
	}
	if p.OutputList != nil {
		d.OutputList = append([]string(nil), (*p.OutputList)...)
	}
	if p.OutputKind != nil {
		d.OutputKind = *p.OutputKind
	}
	if p.AudioTrack != nil {
		d.AudioTrack = *p.AudioTrack
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.ErrorMessage != nil {
		d.ErrorMessage = *p.ErrorMessage
	}
}

// ApplyResult stores an execution result and marks the node done
func (n *Node) ApplyResult(r Result) {
	n.Data.OutputResult = r.Value
	n.Data.OutputList = r.List
	n.Data.OutputKind = r.Kind
	n.Data.AudioTrack = r.AudioTrack
	n.Data.Status = NodeStatusDone
	n.Data.ErrorMessage = ""
}

// MarkRunning clears the previous error and sets the running status
func (n *Node) MarkRunning() {
	n.Data.Status = NodeStatusRunning
	n.Data.ErrorMessage = ""
}

// MarkFailed keeps the previous output and records the error message
func (n *Node) MarkFailed(msg string) {
	n.Data.Status = NodeStatusError
	n.Data.ErrorMessage = msg
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	c := *n
	c.Data.Settings = n.Data.Settings.Clone()
	if n.Data.OutputList != nil {
		c.Data.OutputList = append([]string(nil), n.Data.OutputList...)
	}
	return &c
}
