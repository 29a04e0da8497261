package registry

import (
	"context"

	"flowcanvas/internal/domain"
)

// manualNode returns whatever the user typed or uploaded
func manualNode(t domain.NodeType, label string, out domain.PortDefinition) Definition {
	return &node{
		typ:     t,
		label:   label,
		outputs: []domain.PortDefinition{out},
		run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
			return domain.Result{Kind: out.Type, Value: ec.Settings.String("value")}, nil
		},
	}
}

func inputNodes() []Definition {
	return []Definition{
		manualNode(domain.NodeTypeTextInput, "Prompt Input",
			domain.PortDefinition{ID: "output", Label: "Text", Type: domain.ResourceText, Subtype: domain.SubtypePrompt}),
		manualNode(domain.NodeTypeImageInput, "Reference Asset",
			domain.PortDefinition{ID: "output", Label: "Image", Type: domain.ResourceImage, Subtype: domain.SubtypeImage}),
		manualNode(domain.NodeTypeCharacterRef, "Character IP",
			domain.PortDefinition{ID: "output", Label: "Char Sheet", Type: domain.ResourceImage, Subtype: domain.SubtypeRef}),
		manualNode(domain.NodeTypeIconPrompt, "Icon Prompt",
			domain.PortDefinition{ID: "output", Label: "Text", Type: domain.ResourceText, Subtype: domain.SubtypePrompt}),
		manualNode(domain.NodeTypeIconRefImage, "Icon Ref Image",
			domain.PortDefinition{ID: "output", Label: "Image", Type: domain.ResourceImage, Subtype: domain.SubtypeRef}),
	}
}
