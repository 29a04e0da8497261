package registry

import (
	"context"
	"errors"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/generation"
)

const (
	mattingPrompt = "Isolate the main character/object from this image. Place it on a pure solid #00FF00 green screen background for chroma keying. High precision edges."
	upscalePrompt = "High resolution, 4k, highly detailed, sharp focus. Preserve original content structure."
)

func effectNodes(gen generation.Service) []Definition {
	return []Definition{
		restyleNode(gen, domain.NodeTypeImageMatting, "Smart Matting",
			domain.PortDefinition{ID: "input", Label: "Image", Type: domain.ResourceImage},
			domain.PortDefinition{ID: "image", Label: "Cutout", Type: domain.ResourceImage},
			generation.ModelImageFlash, mattingPrompt, "Requires an image input."),
		restyleNode(gen, domain.NodeTypeImageUpscale, "4K Upscaler",
			domain.PortDefinition{ID: "image", Label: "Image", Type: domain.ResourceImage},
			domain.PortDefinition{ID: "image", Label: "Upscaled", Type: domain.ResourceImage, Subtype: domain.SubtypeImage},
			generation.ModelImagePro, upscalePrompt, "Requires an image to upscale."),
		colorGradeNode(),
	}
}

// restyleNode regenerates its input image with a fixed instruction
func restyleNode(gen generation.Service, t domain.NodeType, label string, in, out domain.PortDefinition, model, prompt, missing string) Definition {
	return &node{
		typ:     t,
		label:   label,
		inputs:  []domain.PortDefinition{in},
		outputs: []domain.PortDefinition{out},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			image := ec.InputOrValue(in.ID)
			if image == "" {
				return domain.Result{}, errors.New(missing)
			}

			handle, err := gen.GenerateImage(ctx, generation.ImageRequest{
				Model:           model,
				Prompt:          prompt,
				AspectRatio:     "1:1",
				ReferenceImages: []string{image},
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.MediaResult(domain.ResourceImage, handle), nil
		},
	}
}

// colorGradeNode passes media through; the grade is applied at preview time
// from the node's settings
func colorGradeNode() Definition {
	return &node{
		typ:   domain.NodeTypeColorGrade,
		label: "Color Grade",
		inputs: []domain.PortDefinition{
			{ID: "media", Label: "Image/Video", Type: domain.ResourceAny},
		},
		outputs: []domain.PortDefinition{
			{ID: "media", Label: "Graded", Type: domain.ResourceAny},
		},
		run: func(_ context.Context, ec *ExecutionContext) (domain.Result, error) {
			media := ec.InputOrValue("media")
			if media == "" {
				return domain.Result{}, errors.New("Requires media input.")
			}
			return domain.MediaResult(GuessKind(media), media), nil
		},
	}
}
