package viz

import (
	"context"

	"climaviz/internal/jsonutil"
	"climaviz/internal/llm"
	"climaviz/internal/llmtool"
	"climaviz/internal/persona"
)

// Classifier answers the two small structured questions asked before
// planning: does this text want a visualization, and how deep can the
// audience go.
type Classifier struct {
	llm llm.Client
}

func NewClassifier(c llm.Client) *Classifier {
	return &Classifier{llm: c}
}

// NeedResult is the visualization-need classification.
type NeedResult struct {
	NeedVisualization int    `json:"need_visualization" prompt_desc:"1 if an environmental data visualization would help explain things, 0 if not"`
	Topic             string `json:"topic_of_interest" prompt_desc:"the main climate-related topic of interest (e.g. temperature trends, air quality, precipitation)"`
}

// Needed reports whether the classifier asked for a visualization.
func (r NeedResult) Needed() bool {
	return r.NeedVisualization == 1
}

// Classify runs one structured classification. A malformed response is
// a ClassificationFailure; no silent defaults.
func (c *Classifier) Classify(ctx context.Context, text string, spec llmtool.StructuredPromptSpec, out any) error {
	prompt, err := spec.Build(map[string]any{"text": text})
	if err != nil {
		return stageErr(KindClassification, "classify", err)
	}
	raw, _, err := c.llm.GenerateJSON(ctx, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Text: prompt}},
		MaxTokens: 300,
	})
	if err != nil {
		return stageErr(KindClassification, "classify", err)
	}
	if err := jsonutil.UnmarshalFlex(raw, out); err != nil {
		return stageErr(KindClassification, "classify", err)
	}
	return nil
}

var needSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "Determine if the given text could use an environmental data visualization to help explain things.",
	Background: "You are a precise classifier. Consider broad interpretations of visualization needs, " +
		"including trends, patterns, comparisons, or spatial/temporal analyses. " +
		"The topic of interest MUST be related to climate change.",
	OutputFields: llmtool.MustFieldsFromStruct(NeedResult{}),
}, llmtool.PresetStrictJSON())

// ClassifyNeed decides whether the user text warrants a visualization
// and names its climate topic.
func (c *Classifier) ClassifyNeed(ctx context.Context, text string) (NeedResult, error) {
	ctx = llm.WithStage(ctx, "classify-need")
	var out NeedResult
	if err := c.Classify(ctx, text, needSpec, &out); err != nil {
		return NeedResult{}, err
	}
	return out, nil
}

type tierResult struct {
	ComplexityLevel int `json:"complexity_level" prompt_desc:"the most suitable complexity level: 0, 1 or 2"`
}

var tierSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:      "Identify the content difficulty level best matching the given user description.",
	Background:   "You are a difficulty level matcher. Choose the most suitable complexity level from:\n" + persona.ClassifierGuidance(),
	OutputFields: llmtool.MustFieldsFromStruct(tierResult{}),
}, llmtool.PresetStrictJSON())

// ClassifyTier resolves the complexity tier from a persona
// description. A tier outside {0,1,2} is an error, never coerced.
func (c *Classifier) ClassifyTier(ctx context.Context, personaDescription string) (int, error) {
	ctx = llm.WithStage(ctx, "classify-tier")
	var out tierResult
	if err := c.Classify(ctx, personaDescription, tierSpec, &out); err != nil {
		return 0, err
	}
	if !persona.Valid(out.ComplexityLevel) {
		return 0, stageErrf(KindPlanning, "classify-tier", "resolved tier %d outside {0,1,2}", out.ComplexityLevel)
	}
	return out.ComplexityLevel, nil
}
