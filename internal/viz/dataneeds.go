package viz

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"climaviz/internal/jsonutil"
	"climaviz/internal/llm"
	"climaviz/internal/llmtool"
	"climaviz/internal/openmeteo"
)

// DataRequirement is the free-text data-need plan. Only the query
// builder and the synthesis prompt ever read it; nothing parses it
// structurally.
type DataRequirement struct {
	NeededData      string `json:"needed_data" prompt_desc:"which variables, time ranges and locations are required, with the exact parameter names"`
	ProcessingSteps string `json:"data_processing_steps" prompt_desc:"numbered steps to turn the raw data into the visualization's input"`
}

// DataPlanner derives what data a spec needs and builds the concrete
// endpoint queries, gated by the registry.
type DataPlanner struct {
	llm      llm.Client
	registry *openmeteo.Registry
	now      func() time.Time
}

func NewDataPlanner(c llm.Client, registry *openmeteo.Registry) *DataPlanner {
	return &DataPlanner{llm: c, registry: registry, now: time.Now}
}

// PlanDataNeeds derives the free-text requirement from the spec and
// the registry's catalogue. Unparsable output is a PlanningFailure.
func (p *DataPlanner) PlanDataNeeds(ctx context.Context, runCtx Context, spec Spec) (DataRequirement, error) {
	ctx = llm.WithStage(ctx, "plan-data-needs")

	promptSpec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose: "Determine the data needed from the Open-Meteo API for a climate visualization.",
		Background: fmt.Sprintf(
			"The visualization has been defined by another expert as:\n%s\n\nAvailable data:\n%s\n\nThe area of interest is: %s. Use it as the default location when the request names none.",
			spec.Describe(), p.registry.Describe(), defaultLocation(runCtx)),
		OutputFields: llmtool.MustFieldsFromStruct(DataRequirement{}),
	}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent())

	prompt, err := promptSpec.Build(map[string]any{"message": runCtx.LastUserMessage()})
	if err != nil {
		return DataRequirement{}, stageErr(KindPlanning, "plan-data-needs", err)
	}
	raw, _, err := p.llm.GenerateJSON(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: prompt}},
		MaxTokens:   1000,
		Temperature: 0.5,
	})
	if err != nil {
		return DataRequirement{}, stageErr(KindPlanning, "plan-data-needs", err)
	}
	var req DataRequirement
	if err := jsonutil.UnmarshalFlex(raw, &req); err != nil {
		return DataRequirement{}, stageErr(KindPlanning, "plan-data-needs", err)
	}
	if strings.TrimSpace(req.NeededData) == "" {
		return DataRequirement{}, stageErrf(KindPlanning, "plan-data-needs", "empty needed_data")
	}
	return req, nil
}

type builtQuery struct {
	URL         string `json:"url" prompt_desc:"the full request URL with inline parameters"`
	Description string `json:"description" prompt_desc:"what this query retrieves, one line"`
}

type builtQuerySet struct {
	Queries []builtQuery `json:"queries" prompt_desc:"one entry per endpoint request"`
}

// BuildQueries derives concrete request URLs. Every proposed URL must
// match the registry; out-of-registry URLs are discarded before use,
// and a set with no valid query left is rejected. Missing location or
// time-range parameters get the conservative defaults here, whatever
// the prompt said.
func (p *DataPlanner) BuildQueries(ctx context.Context, runCtx Context, spec Spec, req DataRequirement) (openmeteo.QuerySet, error) {
	ctx = llm.WithStage(ctx, "build-queries")

	promptSpec := llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
		Purpose: "Define the Open-Meteo endpoint URLs with inline parameters to retrieve the data for a climate visualization.",
		Background: fmt.Sprintf(
			"Visualization:\n%s\n\nNeeded data:\n%s\n\nEndpoint catalogue:\n%s\n\nArea of interest: %s.",
			spec.Describe(), req.NeededData, p.registry.Describe(), defaultLocation(runCtx)),
		Rules: []string{
			"Be careful about the potential amount of data a query could return (hourly data over 10 years or more is not acceptable).",
			"Prefer one query per endpoint; use several only when the data cannot come from one.",
		},
		OutputFields: llmtool.MustFieldsFromStruct(builtQuerySet{}),
	}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent())

	prompt, err := promptSpec.Build(map[string]any{"message": runCtx.LastUserMessage()})
	if err != nil {
		return nil, stageErr(KindPlanning, "build-queries", err)
	}
	raw, _, err := p.llm.GenerateJSON(ctx, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Text: prompt}},
		MaxTokens: 1000,
	})
	if err != nil {
		return nil, stageErr(KindPlanning, "build-queries", err)
	}
	var set builtQuerySet
	if err := jsonutil.UnmarshalFlex(raw, &set); err != nil {
		return nil, stageErr(KindPlanning, "build-queries", err)
	}
	if len(set.Queries) == 0 {
		return nil, stageErrf(KindPlanning, "build-queries", "model proposed no queries")
	}

	out := make(openmeteo.QuerySet, 0, len(set.Queries))
	for _, q := range set.Queries {
		ep, err := p.registry.ValidateURL(q.URL)
		if err != nil {
			log.Printf("viz: discarding out-of-registry query %q: %v", q.URL, err)
			continue
		}
		bounded, err := openmeteo.ApplyDefaults(q.URL, p.now())
		if err != nil {
			log.Printf("viz: discarding unparseable query %q: %v", q.URL, err)
			continue
		}
		out = append(out, openmeteo.Query{Endpoint: ep.Name, URL: bounded})
	}
	if len(out) == 0 {
		return nil, stageErrf(KindQueryRejected, "build-queries", "every proposed query failed registry validation")
	}
	return out, nil
}

func defaultLocation(runCtx Context) string {
	if strings.TrimSpace(runCtx.Location) != "" {
		return runCtx.Location
	}
	return "Nagoya, Japan"
}
