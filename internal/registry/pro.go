package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/generation"
)

const iconSheetTemplate = `Generate a high-quality 2D sprite sheet containing multiple game or app icons.

**Layout & Context:**
- Layout: {count} items grid.
- Separation: Wide whitespace gaps (Critical for slicing).
- Background: Solid Hex Color {bg_color}. NO gradients, NO shadows casting off-screen.

**Style Definition:**
- Style: {style}
- If 'casual': Supercell style, vector look, thick outlines.
- If '3d_render': C4D, octane render, glossy plastic, high fidelity.
- If 'pixel_art': 32-bit pixel art, crisp edges.
- If 'rpg_item': Blizzard style, intricate details, hand-painted texture.
- If 'ios': iOS app icon style, rounded corners, sleek gradients, Apple design language.
- If 'material': Google Material Design, flat colors, subtle shadows, paper layers.
- If 'glass': Glassmorphism, translucent frosted glass, blurred background, vibrant colors.
- If 'creative': Abstract, surreal, avant-garde, breaking conventional forms.

**Content:**
- Subject: {prompt}
- VFX: {vfx}

**Special Mode Instructions:**
{mode}
`

const artDirectorBrief = `You are a world-class Art Director.
Your goal is to take a rough idea and refine it into a visually stunning art direction brief.
Focus on:
- Color Palette
- Lighting Setup
- Composition
- Texture and Atmosphere

Output a structured description that can be used by artists or AI generators.
Be specific about lighting and colors. Use professional art terminology. Keep it inspiring but actionable.`

func proNodes(gen generation.Service) []Definition {
	return []Definition{proIconGenNode(gen), proArtDirectorNode(gen)}
}

// proResult exposes the single output as both value and one-item list
func proResult(kind domain.ResourceType, v string) domain.Result {
	return domain.ListResult(kind, v, []string{v})
}

// IconSheetPrompt fills the icon sheet template from node settings
func IconSheetPrompt(s domain.Settings, prompt string) string {
	count := fmt.Sprintf("%d", int(s.FloatOr("count", 1)))

	vfx := "Clean silhouette, No external particles"
	if s.Bool("vfx") {
		vfx = "Magical glow and particles allowed"
	}

	mode := fmt.Sprintf("- Generate %s distinct variations of the subject.", count)
	if s.Bool("evolution") {
		mode = fmt.Sprintf("- Create a Level 1 to Level %s progression for a SINGLE concept.\n"+
			"- Stage 1: Basic/Weak (Wood/Iron).\n"+
			"- Stage %s: Legendary/God-tier (Gold/Diamond/Light).\n"+
			"- Show gradual visual upgrades.", count, count)
	}

	filled := strings.NewReplacer(
		"{count}", count,
		"{bg_color}", s.StringOr("bg_color", "white"),
		"{style}", s.StringOr("style", "casual"),
		"{prompt}", prompt,
		"{vfx}", vfx,
		"{mode}", mode,
	).Replace(iconSheetTemplate)

	return filled + "\n\nUser Request: " + prompt
}

func proIconGenNode(gen generation.Service) Definition {
	return &node{
		typ:   domain.NodeTypeProIconGen,
		label: "NOCRA Icons",
		inputs: []domain.PortDefinition{
			{ID: "prompt", Label: "Prompt", Type: domain.ResourceText},
			{ID: "ref_image", Label: "Ref Image", Type: domain.ResourceImage},
		},
		outputs: []domain.PortDefinition{
			{ID: "output", Label: "Image", Type: domain.ResourceImage, Subtype: domain.SubtypeImage},
		},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			prompt := ec.Input("prompt")
			if prompt == "" {
				prompt = ec.Settings.String("prompt")
			}
			if prompt == "" {
				return domain.Result{}, errors.New("Icon generation requires a prompt.")
			}

			var refs []string
			if ref := ec.Input("ref_image"); ref != "" {
				refs = append(refs, ref)
			} else if ref := ec.Settings.String("reference_image"); ref != "" {
				refs = append(refs, ref)
			}

			model := generation.ModelImageFlash
			if ec.Settings.String("model_tier") == "pro" {
				model = generation.ModelImagePro
			}

			handle, err := gen.GenerateImage(ctx, generation.ImageRequest{
				Model:           model,
				Prompt:          IconSheetPrompt(ec.Settings, prompt),
				AspectRatio:     ec.Settings.StringOr("aspect_ratio", "1:1"),
				Resolution:      "1024x1024",
				ReferenceImages: refs,
			})
			if err != nil {
				return domain.Result{}, err
			}
			return proResult(domain.ResourceImage, handle), nil
		},
	}
}

func proArtDirectorNode(gen generation.Service) Definition {
	return &node{
		typ:   domain.NodeTypeProArtDirector,
		label: "AI Art Director",
		inputs: []domain.PortDefinition{
			{ID: "prompt", Label: "Rough Idea", Type: domain.ResourceText},
		},
		outputs: []domain.PortDefinition{
			{ID: "output", Label: "Art Direction", Type: domain.ResourceText, Subtype: domain.SubtypePrompt},
		},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			idea := ec.Input("prompt")
			if idea == "" {
				idea = ec.Settings.String("prompt")
			}
			if idea == "" {
				return domain.Result{}, errors.New("Art direction requires a rough idea.")
			}

			brief := fmt.Sprintf("%s\n\nMood: %s\nComposition: %s\n\nUser Request: %s",
				artDirectorBrief,
				ec.Settings.StringOr("mood", "cinematic"),
				ec.Settings.StringOr("composition", "rule_of_thirds"),
				idea)

			text, err := gen.GenerateText(ctx, generation.TextRequest{
				Model:  ec.Settings.StringOr("model", generation.ModelTextPro),
				Prompt: brief,
			})
			if err != nil {
				return domain.Result{}, err
			}
			return proResult(domain.ResourceText, text), nil
		},
	}
}
