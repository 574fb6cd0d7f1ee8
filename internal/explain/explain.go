// Package explain turns a rendered chart into a tier-tailored
// narrative. Two sequential multimodal calls: plan an outline against
// the chart image, then generate the explanation from the outline and
// the dataset statistics.
package explain

import (
	"context"
	"fmt"
	"strings"

	"climaviz/internal/llm"
	"climaviz/internal/persona"
)

// Input is everything one explanation needs. ImagePNG is the rendered
// chart; DataDescription is the statistics block saved for the chat.
type Input struct {
	Tier            int
	Scenario        string
	Options         []string
	ImagePNG        []byte
	DataDescription string
	Lang            string
}

// Generator produces explanation outlines and narratives.
type Generator struct {
	llm llm.Client
}

func NewGenerator(c llm.Client) *Generator {
	return &Generator{llm: c}
}

const planPrompt = `Given a climate visualization, create a detailed explanation plan to help the user better understand the visualization so they can make more sound decisions.
The goal of the explanation is to make the user more aware of climate change trends and patterns, and how they relate to the visualization.
Provide a structured outline addressing the important elements of the visualization to help guide the user into making decisions.`

// Plan asks for the explanation outline against the chart image.
func (g *Generator) Plan(ctx context.Context, in Input) (string, error) {
	ctx = llm.WithStage(ctx, "explain-plan")

	resp, err := g.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Text: systemPrompt(in)},
			{Role: llm.RoleUser, Text: scenarioFraming(in) + "\n\n" + planPrompt, ImagePNG: in.ImagePNG},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("explain: plan: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("explain: empty outline")
	}
	return resp.Text, nil
}

// Generate produces the final narrative from the outline.
func (g *Generator) Generate(ctx context.Context, in Input, outline string) (string, error) {
	resp, err := g.llm.Complete(llm.WithStage(ctx, "explain-generate"), g.generateRequest(in, outline))
	if err != nil {
		return "", fmt.Errorf("explain: generate: %w", err)
	}
	return resp.Text, nil
}

// GenerateStream is Generate with token forwarding. Cancelling ctx
// stops the upstream read promptly; chunks already delivered stand.
func (g *Generator) GenerateStream(ctx context.Context, in Input, outline string, onChunk func(string)) error {
	_, err := g.llm.CompleteStream(llm.WithStage(ctx, "explain-generate"), g.generateRequest(in, outline), onChunk)
	if err != nil {
		return fmt.Errorf("explain: stream: %w", err)
	}
	return nil
}

// ExplainStream runs both phases, streaming the second.
func (g *Generator) ExplainStream(ctx context.Context, in Input, onChunk func(string)) error {
	outline, err := g.Plan(ctx, in)
	if err != nil {
		return err
	}
	return g.GenerateStream(ctx, in, outline, onChunk)
}

func (g *Generator) generateRequest(in Input, outline string) llm.Request {
	text := fmt.Sprintf(`%s

Based on the explanation plan provided, generate a comprehensive yet accessible explanation of the climate visualization:

%s

Here is information about the data that was used:
%s

Ensure your explanation is clear, short and engaging.`, scenarioFraming(in), outline, in.DataDescription)

	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Text: systemPrompt(in)},
			{Role: llm.RoleUser, Text: text, ImagePNG: in.ImagePNG},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	}
}

func systemPrompt(in Input) string {
	base := persona.ExpPrompt(in.Tier)
	lang := in.Lang
	if lang == "" {
		lang = "en"
	}
	return base + fmt.Sprintf("\n\nAll text shown to the user must be written in %q.", lang)
}

func scenarioFraming(in Input) string {
	if in.Scenario == "" {
		return "The user asked about a climate visualization."
	}
	return fmt.Sprintf("The user is participating in a civic decision-making experiment about budget allocation.\n\n"+
		"SCENARIO DETAILS:\n%s\n\nDECISION OPTIONS:\n- %s\n\n"+
		"Remain neutral: provide factual information without advocating for any option.",
		in.Scenario, strings.Join(in.Options, "\n- "))
}
