package viz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"climaviz/internal/dataset"
	"climaviz/internal/engine"
	"climaviz/internal/llm"
	"climaviz/internal/openmeteo"
)

// scriptedRetriever stands in for the weather client; the pipeline
// only sees the resulting collection.
type scriptedRetriever struct {
	data    dataset.Collection
	called  bool
	queries openmeteo.QuerySet
}

func (r *scriptedRetriever) Retrieve(ctx context.Context, qs openmeteo.QuerySet) dataset.Collection {
	r.called = true
	r.queries = qs
	return r.data
}

func nagoyaDaily(t *testing.T) dataset.Normalized {
	t.Helper()
	return dataset.Normalize(map[string]any{
		"latitude":  35.1815,
		"longitude": 136.9064,
		"daily": map[string]any{
			"time":                []any{"2024-06-01", "2024-06-02", "2024-06-03"},
			"temperature_2m_mean": []any{21.5, 23.0, 22.1},
		},
	})
}

const (
	needReply = `{"need_visualization": 1, "topic_of_interest": "temperature trends"}`
	planReply = `{
		"visualization": "Daily Mean Temperature in Nagoya",
		"chart_type": "line chart",
		"focus": "long-term temperature trend",
		"visual_elements": ["x-axis: date", "y-axis: temperature in °C", "single line trace"]
	}`
	needsReply = `{
		"needed_data": "Daily mean temperature (temperature_2m_mean) for Nagoya, past two years",
		"data_processing_steps": "Step 1: plot daily means as a line"
	}`
	queriesReply = `{"queries": [{
		"url": "https://archive-api.open-meteo.com/v1/archive?latitude=35.1815&longitude=136.9064&daily=temperature_2m_mean",
		"description": "daily mean temperature"
	}]}`
	visualizeReply = `
function visualize(datasets) {
	var daily = datasets.length > 0 ? datasets[0].daily : {time: [], temperature_2m_mean: []};
	return {
		data: [{type: "scatter", mode: "lines", name: "temperature", x: daily.time, y: daily.temperature_2m_mean}],
		layout: {title: "Daily Mean Temperature in Nagoya"}
	};
}`
)

func TestRun_TemperatureLineChart(t *testing.T) {
	fake := llm.NewFakeClient().
		Queue(needReply).
		Queue(planReply).
		Queue(needsReply).
		Queue(queriesReply).
		Queue(visualizeReply)
	retriever := &scriptedRetriever{data: dataset.Collection{nagoyaDaily(t)}}

	p := NewPipeline(fake, openmeteo.DefaultRegistry(), retriever, engine.New(0))
	runCtx := Context{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "Show me temperature trends in Nagoya"}},
		Tier:     1,
		Location: "Nagoya, Japan",
	}

	res, err := p.Run(context.Background(), runCtx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Figure.Empty() {
		t.Fatalf("expected at least one trace")
	}
	if res.Figure.Data[0].Type() != "scatter" {
		t.Fatalf("trace type = %q", res.Figure.Data[0].Type())
	}
	if res.Spec.ChartKind != "line chart" {
		t.Fatalf("chart kind = %q", res.Spec.ChartKind)
	}
	if res.Topic != "temperature trends" {
		t.Fatalf("topic = %q", res.Topic)
	}
	if len(res.Datasets) != 1 {
		t.Fatalf("datasets = %d", len(res.Datasets))
	}
	if len(retriever.queries) != 1 {
		t.Fatalf("queries = %d", len(retriever.queries))
	}
	// The builder bounds open-ended queries before they reach retrieval.
	url := retriever.queries[0].URL
	for _, want := range []string{"start_date=", "end_date="} {
		if !strings.Contains(url, want) {
			t.Fatalf("query missing %q: %s", want, url)
		}
	}
}

func TestRun_UnparsableDataNeedsAbortsBeforeRetrieval(t *testing.T) {
	fake := llm.NewFakeClient().
		Queue(needReply).
		Queue(planReply).
		Queue(`this is not valid JSON at all`)
	retriever := &scriptedRetriever{}

	p := NewPipeline(fake, openmeteo.DefaultRegistry(), retriever, engine.New(0))
	runCtx := Context{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "Show air quality patterns"}},
		Tier:     0,
	}

	res, err := p.Run(context.Background(), runCtx)
	var stage *StageError
	if !errors.As(err, &stage) || stage.Kind != KindPlanning {
		t.Fatalf("expected planning failure, got %v", err)
	}
	if retriever.called {
		t.Fatalf("retrieval must not run after a planning failure")
	}
	if !res.Figure.Empty() || len(res.Datasets) != 0 {
		t.Fatalf("failed run must yield empty results")
	}
}

func TestRun_ContinuesWithPartialRetrieval(t *testing.T) {
	fake := llm.NewFakeClient().
		Queue(needReply).
		Queue(planReply).
		Queue(needsReply).
		Queue(`{"queries": [
			{"url": "https://archive-api.open-meteo.com/v1/archive?daily=temperature_2m_mean", "description": "a"},
			{"url": "https://air-quality-api.open-meteo.com/v1/air-quality?hourly=pm2_5", "description": "b"}
		]}`).
		Queue(visualizeReply)
	// One of the two endpoints failed; only one dataset came back.
	retriever := &scriptedRetriever{data: dataset.Collection{nagoyaDaily(t)}}

	p := NewPipeline(fake, openmeteo.DefaultRegistry(), retriever, engine.New(0))
	res, err := p.Run(context.Background(), Context{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "compare temperature and air quality"}},
		Tier:     2,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(retriever.queries) != 2 {
		t.Fatalf("both valid queries should reach retrieval, got %d", len(retriever.queries))
	}
	if len(res.Datasets) != 1 {
		t.Fatalf("run should continue with the surviving dataset")
	}
	if res.Figure.Empty() {
		t.Fatalf("figure should still be produced")
	}
}

func TestRun_UnresolvablePersonaAbortsBeforeAnything(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`{"complexity_level": 7}`)
	retriever := &scriptedRetriever{}

	p := NewPipeline(fake, openmeteo.DefaultRegistry(), retriever, engine.New(0))
	_, err := p.Run(context.Background(), Context{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "show me something"}},
		Persona:  "a retired sailor who likes gardening",
		Tier:     TierUnresolved,
	})
	var stage *StageError
	if !errors.As(err, &stage) || stage.Kind != KindPlanning {
		t.Fatalf("expected planning failure for out-of-range tier, got %v", err)
	}
	if retriever.called {
		t.Fatalf("no data-service call may happen after persona resolution fails")
	}
	if len(fake.Requests) != 1 {
		t.Fatalf("pipeline must stop after the tier call, saw %d requests", len(fake.Requests))
	}
}

func TestRun_MalformedPersonaReplyIsClassificationFailure(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`not json`)
	p := NewPipeline(fake, openmeteo.DefaultRegistry(), &scriptedRetriever{}, engine.New(0))
	_, err := p.Run(context.Background(), Context{
		Persona: "someone",
		Tier:    TierUnresolved,
	})
	var stage *StageError
	if !errors.As(err, &stage) || stage.Kind != KindClassification {
		t.Fatalf("expected classification failure, got %v", err)
	}
}

func TestRun_NoVisualizationNeeded(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`{"need_visualization": 0, "topic_of_interest": "greetings"}`)
	retriever := &scriptedRetriever{}
	p := NewPipeline(fake, openmeteo.DefaultRegistry(), retriever, engine.New(0))

	res, err := p.Run(context.Background(), Context{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "hello there"}},
		Tier:     0,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Figure.Empty() || retriever.called {
		t.Fatalf("no-need runs must stop before planning")
	}
}

func TestRun_EmptyCollectionStillSynthesizes(t *testing.T) {
	fake := llm.NewFakeClient().
		Queue(needReply).
		Queue(planReply).
		Queue(needsReply).
		Queue(queriesReply).
		Queue(visualizeReply)
	retriever := &scriptedRetriever{data: nil}

	p := NewPipeline(fake, openmeteo.DefaultRegistry(), retriever, engine.New(0))
	res, err := p.Run(context.Background(), Context{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: "temperature trends"}},
		Tier:     0,
	})
	if err != nil {
		t.Fatalf("empty collection must not crash the run: %v", err)
	}
	if len(res.Figure.Data) != 1 {
		t.Fatalf("figure should render from the empty-collection contract")
	}
}
