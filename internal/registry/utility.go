package registry

import (
	"context"

	"flowcanvas/internal/domain"
)

// containerNode backs group nodes: no ports, nothing to run
var containerNode Definition = &node{
	typ:   domain.NodeTypeGroup,
	label: "Group",
	run: func(context.Context, *ExecutionContext) (domain.Result, error) {
		return domain.Result{}, nil
	},
}

// passThroughNode returns its input unchanged. With an empty type it serves
// as the fallback for unknown types.
func passThroughNode(t domain.NodeType) Definition {
	label := "Preview / Pass"
	if t == "" {
		label = "Unknown"
	}
	return &node{
		typ:     t,
		label:   label,
		inputs:  []domain.PortDefinition{{ID: "input", Label: "Input", Type: domain.ResourceAny}},
		outputs: []domain.PortDefinition{{ID: "output", Label: "Passthrough", Type: domain.ResourceAny}},
		run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
			in := ec.Inputs["input"]
			if in.IsZero() {
				in = domain.TextValue(ec.Settings.String("value"))
			}
			return domain.PassThrough(GuessKind(in.String()), in), nil
		},
	}
}

func utilityNodes() []Definition {
	return []Definition{
		passThroughNode(domain.NodeTypePreview),
		&node{
			typ:     domain.NodeTypeImageReceiver,
			label:   "Image Receiver",
			inputs:  []domain.PortDefinition{{ID: "input", Label: "Image In", Type: domain.ResourceImage}},
			outputs: []domain.PortDefinition{{ID: "output", Label: "Passthrough", Type: domain.ResourceImage}},
			run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
				return domain.PassThrough(domain.ResourceImage, ec.Inputs["input"]), nil
			},
		},
		&node{
			typ:   domain.NodeTypeImageCompare,
			label: "Compare",
			inputs: []domain.PortDefinition{
				{ID: "before", Label: "Before", Type: domain.ResourceImage},
				{ID: "after", Label: "After", Type: domain.ResourceImage},
			},
			outputs: []domain.PortDefinition{{ID: "output", Label: "After", Type: domain.ResourceImage}},
			run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
				out := ec.Input("after")
				if out == "" {
					out = ec.Input("before")
				}
				return domain.MediaResult(domain.ResourceImage, out), nil
			},
		},
		&node{
			typ:   domain.NodeTypeStickyNote,
			label: "Note",
			run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
				return domain.TextResult(ec.Settings.String("value")), nil
			},
		},
	}
}
