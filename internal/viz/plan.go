package viz

import (
	"context"
	"fmt"
	"strings"

	"climaviz/internal/jsonutil"
	"climaviz/internal/llm"
	"climaviz/internal/llmtool"
	"climaviz/internal/persona"
)

// Spec is the planner's output: what to draw and why. Built exactly
// once per run; later stages read it, never rewrite it.
type Spec struct {
	Name           string   `json:"visualization" prompt_desc:"clear, descriptive name of the visualization"`
	ChartKind      string   `json:"chart_type" prompt_desc:"visualization chart type (e.g. bar chart, scatter plot, line chart, heatmap)"`
	Focus          string   `json:"focus" prompt_desc:"what aspect of climate change this visualization reveals"`
	VisualElements []string `json:"visual_elements" prompt_desc:"important visual elements (axes, traces, labels, color scales)"`
}

// Describe renders the spec for downstream prompt text.
func (s Spec) Describe() string {
	return fmt.Sprintf("Visualization: %s\nChart Type: %s\nFocus: %s\nVisual Elements:\n- %s",
		s.Name, s.ChartKind, s.Focus, strings.Join(s.VisualElements, "\n- "))
}

func (s Spec) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("spec missing visualization name")
	case strings.TrimSpace(s.ChartKind) == "":
		return fmt.Errorf("spec missing chart type")
	case strings.TrimSpace(s.Focus) == "":
		return fmt.Errorf("spec missing focus")
	case len(s.VisualElements) == 0:
		return fmt.Errorf("spec missing visual elements")
	}
	return nil
}

// Planner turns a classified topic into a visualization spec.
type Planner struct {
	llm llm.Client
}

func NewPlanner(c llm.Client) *Planner {
	return &Planner{llm: c}
}

// scenarioFraming mirrors the civic-experiment framing given to the
// model alongside the planning request.
func scenarioFraming(runCtx Context) string {
	if runCtx.Scenario == "" {
		return ""
	}
	return fmt.Sprintf("The user is participating in a civic decision-making experiment about budget allocation. "+
		"They are presented with a local government budget allocation scenario that requires an evidence-based choice.\n\n"+
		"SCENARIO DETAILS:\n%s\n\nDECISION OPTIONS:\n- %s\n\n"+
		"Provide information to help the user understand climate data for fact-based decision making. "+
		"Do not advocate for any specific option.",
		runCtx.Scenario, strings.Join(runCtx.Options, "\n- "))
}

// Plan produces the visualization spec for a run. A response missing
// any required field is a PlanningFailure; partial specs never reach
// later stages.
func (p *Planner) Plan(ctx context.Context, runCtx Context) (Spec, error) {
	ctx = llm.WithStage(ctx, "plan")

	promptSpec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose: "Recommend a climate change visualization using Open-Meteo data.",
		Background: strings.TrimSpace(strings.Join([]string{
			"The visualization will ONLY use Open-Meteo data: historical weather (temperature, precipitation, wind, humidity) and air quality parameters (PM2.5, PM10, gases). No external data sources, assets or icons.",
			"Focus on medium to long term patterns or trends relevant to climate change analysis. Keep it simple and clear; match complexity to the user's level.",
			persona.VizPrompt(runCtx.Tier),
			scenarioFraming(runCtx),
		}, "\n\n")),
		OutputFields: llmtool.MustFieldsFromStruct(Spec{}),
		Language:     runCtx.Lang,
	}, llmtool.PresetStrictJSON(), llmtool.PresetOutputLanguage(runCtx.Lang))

	prompt, err := promptSpec.Build(map[string]any{
		"topic":            runCtx.Topic,
		"user_description": runCtx.Persona,
		"complexity_level": runCtx.Tier,
		"location":         runCtx.Location,
		"message":          runCtx.LastUserMessage(),
	})
	if err != nil {
		return Spec{}, stageErr(KindPlanning, "plan", err)
	}

	raw, _, err := p.llm.GenerateJSON(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: prompt}},
		MaxTokens:   1000,
		Temperature: 0.5,
	})
	if err != nil {
		return Spec{}, stageErr(KindPlanning, "plan", err)
	}

	var spec Spec
	if err := jsonutil.UnmarshalFlex(raw, &spec); err != nil {
		return Spec{}, stageErr(KindPlanning, "plan", err)
	}
	if err := spec.validate(); err != nil {
		return Spec{}, stageErr(KindPlanning, "plan", err)
	}
	return spec, nil
}
