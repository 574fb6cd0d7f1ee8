package viz

import (
	"context"
	"log"

	"climaviz/internal/chart"
	"climaviz/internal/dataset"
	"climaviz/internal/engine"
	"climaviz/internal/llm"
	"climaviz/internal/openmeteo"
)

// Retriever fetches a query set into a dataset collection. Endpoint
// failures are its business; it never fails the run.
type Retriever interface {
	Retrieve(ctx context.Context, qs openmeteo.QuerySet) dataset.Collection
}

// Result is what a run hands back. On failure both Figure and Datasets
// are empty; no partial chart ever escapes.
type Result struct {
	Figure   chart.Figure
	Datasets dataset.Collection
	Spec     Spec
	Topic    string
	Tier     int
}

// Pipeline sequences the stages strictly forward. The first fatal
// stage failure terminates the run.
type Pipeline struct {
	classifier  *Classifier
	planner     *Planner
	dataPlanner *DataPlanner
	retriever   Retriever
	synth       *Synthesizer
}

// NewPipeline wires the default stages around one LLM client.
func NewPipeline(c llm.Client, registry *openmeteo.Registry, retriever Retriever, eng *engine.Engine) *Pipeline {
	return &Pipeline{
		classifier:  NewClassifier(c),
		planner:     NewPlanner(c),
		dataPlanner: NewDataPlanner(c, registry),
		retriever:   retriever,
		synth:       NewSynthesizer(c, eng),
	}
}

// Run executes one visualization run end to end. Narrative generation
// is the caller's next step, not this pipeline's.
func (p *Pipeline) Run(ctx context.Context, runCtx Context) (Result, error) {
	runCtx = runCtx.Normalize()

	if runCtx.Tier < 0 || runCtx.Tier > 2 {
		tier, err := p.classifier.ClassifyTier(ctx, runCtx.Persona)
		if err != nil {
			return Result{}, err
		}
		runCtx.Tier = tier
	}

	topic := runCtx.Topic
	if topic == "" {
		need, err := p.classifier.ClassifyNeed(ctx, runCtx.LastUserMessage())
		if err != nil {
			return Result{}, err
		}
		if !need.Needed() {
			return Result{Topic: need.Topic, Tier: runCtx.Tier}, nil
		}
		topic = need.Topic
		runCtx.Topic = topic
	}

	spec, err := p.planner.Plan(ctx, runCtx)
	if err != nil {
		return Result{}, err
	}

	req, err := p.dataPlanner.PlanDataNeeds(ctx, runCtx, spec)
	if err != nil {
		return Result{}, err
	}

	queries, err := p.dataPlanner.BuildQueries(ctx, runCtx, spec, req)
	if err != nil {
		return Result{}, err
	}

	data := p.retriever.Retrieve(ctx, queries)
	if len(data) == 0 {
		log.Printf("viz: run %s: every endpoint failed, continuing with empty collection", runCtx.RunID)
		data = dataset.Collection{}
	}

	fig, err := p.synth.Render(ctx, runCtx, spec, req, data)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Figure:   fig,
		Datasets: data,
		Spec:     spec,
		Topic:    topic,
		Tier:     runCtx.Tier,
	}, nil
}
