// Package scenario generates the civic budget-allocation scenario a
// chat session revolves around.
package scenario

import (
	"context"
	"fmt"
	"strings"

	"climaviz/internal/jsonutil"
	"climaviz/internal/llm"
	"climaviz/internal/llmtool"
)

// Scenario is one generated civic decision: a situation, a budget and
// four short options, exactly one tied to the climate topic.
type Scenario struct {
	Scenario string   `json:"scenario" prompt_desc:"the scenario description, neutral, locally grounded, introducing every option equally"`
	Budget   int64    `json:"budget" prompt_desc:"the available budget in the local currency"`
	Options  []string `json:"options" prompt_desc:"4 distinct short policy or infrastructure options; exactly one relates to the climate topic"`
}

// Generator produces scenarios for a location and climate topic.
type Generator struct {
	llm llm.Client
}

func NewGenerator(c llm.Client) *Generator {
	return &Generator{llm: c}
}

// Generate asks for one scenario. Lang steers language and currency.
func (g *Generator) Generate(ctx context.Context, location, topic, lang string) (Scenario, error) {
	ctx = llm.WithStage(ctx, "scenario")
	if lang == "" {
		lang = "en"
	}

	spec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose: fmt.Sprintf("Create a realistic civic decision-making scenario for %s.", location),
		Background: "You are a policy maker assessing citizens' decision making in public budget allocation. " +
			"Adapt the currency to the output language (e.g. JPY for Japanese, USD for English).",
		Rules: []string{
			"Present a specific local government or community decision with a budget realistic for the location (a big city around 1M$, a small town around 100k$).",
			"Offer 4 distinct policy or infrastructure options addressing issues in the city (education, infrastructure, ...). Keep them really short (a few words).",
			fmt.Sprintf("Exactly one option MUST be linked to the topic of %s.", topic),
			"Include local context and places that residents may know (recent extreme weather, road conditions, ...).",
			"Write in a neutral tone that favors no option; introduce all options equally with enough information for an informed choice.",
			"Include a brief note on why this decision matters to local residents.",
			"Do not center the scenario on climate change; it is a general civic scenario with only one climate-related option.",
		},
		OutputFields: llmtool.MustFieldsFromStruct(Scenario{}),
		Language:     lang,
	}, llmtool.PresetStrictJSON(), llmtool.PresetOutputLanguage(lang))

	prompt, err := spec.Build(map[string]any{"location": location, "climate_topic": topic})
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: %w", err)
	}

	raw, _, err := g.llm.GenerateJSON(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: prompt}},
		MaxTokens:   1000,
		Temperature: 0.8,
	})
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: %w", err)
	}

	var s Scenario
	if err := jsonutil.UnmarshalFlex(raw, &s); err != nil {
		return Scenario{}, fmt.Errorf("scenario: decode: %w", err)
	}
	if strings.TrimSpace(s.Scenario) == "" || len(s.Options) != 4 {
		return Scenario{}, fmt.Errorf("scenario: incomplete result (%d options)", len(s.Options))
	}
	return s, nil
}
