package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/generation"
)

// referenceTextLimit caps inline reference text inside media prompts
const referenceTextLimit = 200

func generatorNodes(gen generation.Service) []Definition {
	return []Definition{
		imageGenNode(gen),
		videoGenNode(gen),
		audioGenNode(gen),
	}
}

func imageGenNode(gen generation.Service) Definition {
	return &node{
		typ:   domain.NodeTypeImageGen,
		label: "Visual Generator",
		inputs: []domain.PortDefinition{
			{ID: "prompt", Label: "Prompt", Type: domain.ResourceText, Subtype: domain.SubtypePrompt},
			{ID: "image_ref", Label: "Image Ref", Type: domain.ResourceImage},
			{ID: "char_ref", Label: "Character", Type: domain.ResourceImage},
		},
		outputs: []domain.PortDefinition{
			{ID: "image", Label: "Generated Image", Type: domain.ResourceImage, Subtype: domain.SubtypeImage},
		},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			prompt := ec.InputOrValue("prompt")

			var refImages []string
			for _, port := range []string{"image_ref", "char_ref"} {
				if v := ec.Input(port); v != "" {
					refImages = append(refImages, v)
				}
			}

			if prompt == "" && len(refImages) == 0 {
				return domain.Result{}, errors.New("Please connect a text prompt or image reference.")
			}
			if prompt == "" {
				prompt = "High quality image variation."
			}

			var parts []string

			// Name the connected images so the prompt can refer to them
			var described []string
			for i, port := range []string{"image_ref", "char_ref"} {
				if label := ec.InputLabels[port]; label != "" {
					described = append(described, fmt.Sprintf("The %s image is '%s'.", ordinal(i+1), label))
				}
			}
			if len(described) > 0 {
				parts = append(parts, bracket("Context", described))
			}

			if len(ec.References) > 0 {
				var items []string
				for _, ref := range ec.References {
					if ref.Media {
						refImages = append(refImages, ref.Value)
						items = append(items, fmt.Sprintf("@%s is image #%d.", ref.Label, len(refImages)))
						continue
					}
					items = append(items, fmt.Sprintf("@%s content: \"%s\".", ref.Label, Truncate(ref.Value, referenceTextLimit)))
				}
				parts = append(parts, bracket("References", items))
			}

			parts = append(parts, prompt)

			handle, err := gen.GenerateImage(ctx, generation.ImageRequest{
				Model:           ec.Settings.StringOr("model", generation.ModelImageFlash),
				Prompt:          strings.Join(parts, " "),
				AspectRatio:     ec.Settings.StringOr("aspectRatio", "16:9"),
				Resolution:      ec.Settings.String("resolution"),
				ReferenceImages: refImages,
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.MediaResult(domain.ResourceImage, handle), nil
		},
	}
}

func videoGenNode(gen generation.Service) Definition {
	return &node{
		typ:   domain.NodeTypeVideoGen,
		label: "Motion Generator",
		inputs: []domain.PortDefinition{
			{ID: "prompt", Label: "Prompt", Type: domain.ResourceText, Subtype: domain.SubtypePrompt},
			{ID: "start_image", Label: "Start Frame", Type: domain.ResourceImage},
			{ID: "end_image", Label: "End Frame", Type: domain.ResourceImage},
		},
		outputs: []domain.PortDefinition{
			{ID: "video", Label: "Video", Type: domain.ResourceVideo, Subtype: domain.SubtypeVideo},
		},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			prompt := ec.Settings.String("value")
			// A connected prompt only overrides the manual one when it says something
			if in := ec.Input("prompt"); strings.TrimSpace(in) != "" {
				prompt = in
			}

			start := ec.Input("start_image")
			if start == "" {
				start = ec.Settings.String("startImageBase64")
			}
			end := ec.Input("end_image")
			if end == "" {
				end = ec.Settings.String("endImageBase64")
			}

			if len(ec.References) > 0 {
				var items []string
				for _, ref := range ec.References {
					if !ref.Media {
						items = append(items, fmt.Sprintf("@%s: \"%s\".", ref.Label, Truncate(ref.Value, referenceTextLimit)))
						continue
					}
					item := fmt.Sprintf("@%s is an image reference.", ref.Label)
					if start == "" {
						start = ref.Value
						item += " (Used as Start Frame)"
					}
					items = append(items, item)
				}
				prompt = strings.TrimSpace(prompt + " " + bracket("References", items))
			}

			if prompt == "" && start == "" && end == "" {
				return domain.Result{}, errors.New("Video generation requires a text prompt or a start/end image.")
			}

			duration := int(ec.Settings.FloatOr("duration", 4))
			if duration <= 0 {
				duration = 4
			}

			handle, err := gen.GenerateVideo(ctx, generation.VideoRequest{
				Model:       ec.Settings.String("model"),
				Prompt:      prompt,
				AspectRatio: ec.Settings.String("aspectRatio"),
				Resolution:  ec.Settings.String("resolution"),
				Duration:    duration,
				StartImage:  start,
				EndImage:    end,
				WithAudio:   ec.Settings.Bool("withAudio"),
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.MediaResult(domain.ResourceVideo, handle), nil
		},
	}
}

func audioGenNode(gen generation.Service) Definition {
	return &node{
		typ:   domain.NodeTypeAudioGen,
		label: "Audio Emitter",
		inputs: []domain.PortDefinition{
			{ID: "text", Label: "Text", Type: domain.ResourceText},
		},
		outputs: []domain.PortDefinition{
			{ID: "audio", Label: "Audio", Type: domain.ResourceAudio, Subtype: domain.SubtypeAudio},
		},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			text := ec.InputOrValue("text")
			if text == "" {
				return domain.Result{}, errors.New("Audio generation requires text input.")
			}

			handle, err := gen.GenerateSpeech(ctx, generation.SpeechRequest{
				Model: ec.Settings.String("model"),
				Text:  text,
				Voice: ec.Settings.StringOr("voice", "Kore"),
				Kind:  ec.Settings.String("audioType"),
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.MediaResult(domain.ResourceAudio, handle), nil
		},
	}
}
