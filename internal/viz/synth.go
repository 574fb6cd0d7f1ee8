package viz

import (
	"context"
	"fmt"
	"strings"

	"climaviz/internal/chart"
	"climaviz/internal/dataset"
	"climaviz/internal/engine"
	"climaviz/internal/llm"
	"climaviz/internal/persona"
)

// Synthesizer asks the model for executable chart code and runs it in
// the sandbox. The prompt pins the exact function name the engine will
// look up; nothing else in the artifact is reachable.
type Synthesizer struct {
	llm    llm.Client
	engine *engine.Engine
}

func NewSynthesizer(c llm.Client, e *engine.Engine) *Synthesizer {
	return &Synthesizer{llm: c, engine: e}
}

const synthRules = `Return ONLY JavaScript source, no markdown fences, no commentary.
The datasets argument is an array of objects, one per retrieved dataset, each with "metadata", "hourly" and "daily" objects mapping column names to value arrays.
The "time" column holds ISO-8601 strings. The array may be empty; return a figure with an empty data list in that case.
Use only plain JavaScript (ES5): no require, no imports, no network or file access, no external libraries.
Code identifiers and comments stay in English.`

// Synthesize requests an artifact implementing sig against a preview
// of the retrieved data.
func (s *Synthesizer) Synthesize(ctx context.Context, runCtx Context, spec Spec, req DataRequirement, data dataset.Collection, sig engine.Signature) (engine.Artifact, error) {
	ctx = llm.WithStage(ctx, "synthesize")

	var task string
	switch sig {
	case engine.SignatureVisualize:
		task = fmt.Sprintf(`Write a JavaScript function with this exact signature:

function visualize(datasets)

It must return a plotly-style figure object: {data: [...traces], layout: {...}}.
Every trace must carry a "type" field (e.g. "scatter", "bar", "heatmap").
All user-visible text (titles, axis labels, trace names) must be written in %q.`, runCtx.Lang)
	case engine.SignatureProcessData:
		task = `Write a JavaScript function with this exact signature:

function processData(datasets)

It must return an object mapping column names to value arrays (a column-major table).`
	default:
		return engine.Artifact{}, stageErrf(KindSynthesis, "synthesize", "unknown signature %q", sig)
	}

	prompt := strings.Join([]string{
		task,
		"# Visualization\n" + spec.Describe(),
		"# Processing Plan\n" + req.ProcessingSteps,
		"# Style\n" + persona.VizPrompt(runCtx.Tier),
		"# Input Data\n" + dataPreview(data),
		"# Rules\n" + synthRules,
	}, "\n\n")

	resp, err := s.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: prompt}},
		MaxTokens:   4000,
		Temperature: 0.8,
	})
	if err != nil {
		return engine.Artifact{}, stageErr(KindSynthesis, "synthesize", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return engine.Artifact{}, stageErrf(KindSynthesis, "synthesize", "empty artifact source")
	}
	return engine.Artifact{Source: resp.Text, Signature: sig}, nil
}

// Render synthesizes and executes the visualize artifact, returning a
// validated, enhanced figure. Any failure along the way is a
// SynthesisFailure; no partial figure is ever returned.
func (s *Synthesizer) Render(ctx context.Context, runCtx Context, spec Spec, req DataRequirement, data dataset.Collection) (chart.Figure, error) {
	art, err := s.Synthesize(ctx, runCtx, spec, req, data, engine.SignatureVisualize)
	if err != nil {
		return chart.Figure{}, err
	}
	fig, err := s.engine.ExecuteFigure(ctx, art, data)
	if err != nil {
		return chart.Figure{}, stageErr(KindSynthesis, "execute", err)
	}
	return chart.Enhance(fig), nil
}

// dataPreview summarizes the collection for the synthesis prompt:
// column names, row counts and the statistics block, never raw rows.
func dataPreview(data dataset.Collection) string {
	if len(data) == 0 {
		return "No datasets were retrieved. datasets will be an empty array."
	}
	var buf strings.Builder
	for i, n := range data {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "datasets[%d]: metadata columns %v; hourly columns %v (%d rows); daily columns %v (%d rows)\n",
			i, n.Metadata.Columns, n.Hourly.Columns, n.Hourly.Rows(), n.Daily.Columns, n.Daily.Rows())
	}
	if desc := data.Describe(); desc != "" {
		buf.WriteString("\n" + desc)
	}
	return buf.String()
}
