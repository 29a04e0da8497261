package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowcanvas/internal/domain"
	"flowcanvas/internal/generation"
)

const (
	scriptReferenceLimit = 500
	defaultConcept       = "Describe a simple creative concept to generate content."
)

func agentNodes(gen generation.Service) []Definition {
	return []Definition{
		scriptAgentNode(gen),
		rewriteNode(gen, domain.NodeTypeAIRefine, "AI Refine",
			domain.PortDefinition{ID: "input", Label: "Raw Text", Type: domain.ResourceText},
			domain.PortDefinition{ID: "refined", Label: "Polished", Type: domain.ResourceText, Subtype: domain.SubtypePrompt},
			true,
			`Refine this prompt for better AI generation results (Image/Video): "%s". Return only the refined prompt text, no explanations.`),
		rewriteNode(gen, domain.NodeTypePromptTranslator, "Prompt EN Translator",
			domain.PortDefinition{ID: "input", Label: "Prompt (Any Lang)", Type: domain.ResourceText},
			domain.PortDefinition{ID: "translated", Label: "English Prompt", Type: domain.ResourceText, Subtype: domain.SubtypePrompt},
			false,
			`Translate the following text to English for AI Image Prompt usage. If it is already English, just refine it. Text: "%s". Return only the translated text.`),
	}
}

func scriptAgentNode(gen generation.Service) Definition {
	return &node{
		typ:   domain.NodeTypeScriptAgent,
		label: "Story Writer",
		inputs: []domain.PortDefinition{
			{ID: "concept", Label: "Core Concept", Type: domain.ResourceText},
		},
		outputs: []domain.PortDefinition{
			{ID: "script", Label: "Script", Type: domain.ResourceText, Subtype: domain.SubtypeScript},
		},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			concept := ec.InputOrValue("concept")
			if concept == "" {
				concept = ec.Settings.StringOr("prompt", defaultConcept)
			}
			scenes, err := gen.GenerateScript(ctx, generation.ScriptRequest{
				Model:   ec.Settings.String("model"),
				Concept: concept,
				Role:    ec.Settings.StringOr("role", "director"),
				Context: referenceContext(ec.References, scriptReferenceLimit),
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.ListResult(domain.ResourceText, strings.Join(scenes, "\n\n"), scenes), nil
		},
	}
}

// rewriteNode wraps its input in an instruction and asks for a completion
func rewriteNode(gen generation.Service, t domain.NodeType, label string, in, out domain.PortDefinition, withReferences bool, instruction string) Definition {
	return &node{
		typ:     t,
		label:   label,
		inputs:  []domain.PortDefinition{in},
		outputs: []domain.PortDefinition{out},
		run: func(ctx context.Context, ec *ExecutionContext) (domain.Result, error) {
			text := ec.InputOrValue(in.ID)
			if text == "" {
				return domain.Result{}, errors.New("Input text required")
			}
			if withReferences {
				text += referenceContext(ec.References, 0)
			}

			result, err := gen.GenerateText(ctx, generation.TextRequest{
				Model:  ec.Settings.StringOr("model", generation.ModelTextFlash),
				Prompt: fmt.Sprintf(instruction, text),
			})
			if err != nil {
				return domain.Result{}, err
			}
			return domain.TextResult(result), nil
		},
	}
}
