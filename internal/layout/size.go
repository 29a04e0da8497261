package layout

import (
	"strconv"
	"strings"

	"flowcanvas/internal/domain"
)

const (
	// DefaultWidth is the width of text and logic nodes
	DefaultWidth = 280.0
	// ExpandedWidth is the width of an expanded node other than text_input
	ExpandedWidth = 600.0
	// ChromeHeight is the header plus footer added to a node's content height
	ChromeHeight = 40.0
	// BodyPadding is added to the content height of non-media nodes
	BodyPadding = 32.0

	// Default group size when settings carry none
	DefaultGroupWidth  = 400.0
	DefaultGroupHeight = 300.0
)

// mediaWidthTypes take their width from the aspect ratio setting
var mediaWidthTypes = map[domain.NodeType]bool{
	domain.NodeTypeVideoGen:      true,
	domain.NodeTypeImageGen:      true,
	domain.NodeTypeVideoComposer: true,
	domain.NodeTypePreview:       true,
	domain.NodeTypeImageMatting:  true,
}

// mediaBodyTypes render without body padding
var mediaBodyTypes = map[domain.NodeType]bool{
	domain.NodeTypeVideoGen:      true,
	domain.NodeTypeImageGen:      true,
	domain.NodeTypeVideoComposer: true,
	domain.NodeTypePreview:       true,
	domain.NodeTypeImageInput:    true,
	domain.NodeTypeImageMatting:  true,
	domain.NodeTypeImageUpscale:  true,
	domain.NodeTypeImageCompare:  true,
	domain.NodeTypeImageReceiver: true,
}

// IsMediaNode reports whether the node body is drawn edge to edge
func IsMediaNode(t domain.NodeType) bool {
	return mediaBodyTypes[t]
}

// ParseAspectRatio parses "W:H" into its two terms
func ParseAspectRatio(s string) (w, h float64, ok bool) {
	a, b, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(a), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errW != nil || errH != nil || w == 0 || h == 0 {
		return 0, 0, false
	}
	return w, h, true
}

// heightRatio returns h/w of the node's aspect ratio setting, or fallback
func heightRatio(n *domain.Node, defaultRatio string, fallback float64) float64 {
	ar := n.Data.Settings.StringOr("aspectRatio", defaultRatio)
	if w, h, ok := ParseAspectRatio(ar); ok {
		return h / w
	}
	return fallback
}

// NodeWidth returns the rendered width of a node
func NodeWidth(n *domain.Node, expanded bool) float64 {
	if n == nil {
		return DefaultWidth
	}
	if n.IsGroup() {
		return n.Data.Settings.FloatOr("width", DefaultGroupWidth)
	}

	if n.Type == domain.NodeTypeStickyNote {
		if expanded {
			return 400
		}
		return 220
	}

	if expanded {
		if n.Type == domain.NodeTypeTextInput {
			return 400
		}
		return ExpandedWidth
	}

	if n.Type == domain.NodeTypeImageInput {
		return 220
	}

	if n.Type.IsPro() {
		return 400
	}

	if mediaWidthTypes[n.Type] {
		switch n.Data.Settings.String("aspectRatio") {
		case "9:16", "3:4", "2:3", "4:5":
			return 260
		case "1:1":
			return 300
		default:
			return 360
		}
	}

	return DefaultWidth
}

// NodeContentHeight returns the height of a node's body for a given width
func NodeContentHeight(n *domain.Node, width float64) float64 {
	if n == nil {
		return 100
	}

	switch n.Type {
	case domain.NodeTypeVideoGen:
		return width*heightRatio(n, "16:9", 9.0/16.0) + 30
	case domain.NodeTypeImageGen:
		if r, ok := n.Data.Settings.Float("imageRatio"); ok && r > 0 {
			return width/r + 30
		}
		return width*heightRatio(n, "1:1", 1) + 30
	case domain.NodeTypeImageInput, domain.NodeTypeImageMatting, domain.NodeTypePreview:
		if r, ok := n.Data.Settings.Float("imageRatio"); ok && r > 0 {
			return width / r
		}
		return width * heightRatio(n, "1:1", 1)
	case domain.NodeTypeStickyNote:
		return 300
	case domain.NodeTypeScriptAgent:
		return 180
	case domain.NodeTypeAudioGen, domain.NodeTypeVideoComposer:
		return 160
	case domain.NodeTypeTextInput:
		if width > 300 {
			return 300
		}
		return 100
	}

	if n.Type.IsPro() {
		return 600
	}
	return 100
}

// NodeHeight returns the full rendered height of a node
func NodeHeight(n *domain.Node, expanded bool) float64 {
	if n.IsGroup() {
		return n.Data.Settings.FloatOr("height", DefaultGroupHeight)
	}
	return NodeContentHeight(n, NodeWidth(n, expanded)) + ChromeHeight
}

// NodeBounds returns the world rectangle of a collapsed node. It satisfies
// domain.BoundsFunc.
func NodeBounds(n *domain.Node) domain.Rect {
	return NodeBoundsExpanded(n, false)
}

// NodeBoundsExpanded returns the world rectangle of a node, honouring the
// expanded state
func NodeBoundsExpanded(n *domain.Node, expanded bool) domain.Rect {
	return domain.Rect{
		X: n.X,
		Y: n.Y,
		W: NodeWidth(n, expanded),
		H: NodeHeight(n, expanded),
	}
}
