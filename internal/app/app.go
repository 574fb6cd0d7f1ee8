// Package app wires the service: configuration, model clients with
// their middleware chain, the weather client, the execution engine and
// the HTTP server.
package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"climaviz/internal/config"
	"climaviz/internal/descstore"
	"climaviz/internal/engine"
	"climaviz/internal/explain"
	"climaviz/internal/llm"
	"climaviz/internal/openmeteo"
	"climaviz/internal/scenario"
	"climaviz/internal/server"
	"climaviz/internal/viz"
)

type App struct {
	cfg    *config.Config
	srv    *server.Server
	ledger *llm.Ledger
	desc   *descstore.Store

	planLLM llm.Client
	chatLLM llm.Client
}

// New builds the full service. The planning/synthesis client is
// Gemini; classification falls back to an OpenAI-compatible service
// when configured, otherwise the same client serves both roles.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	ledger, err := llm.OpenLedger(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open token ledger: %w", err)
	}

	mws := []llm.Middleware{
		llm.WithLogging(log.New(os.Stderr, "", log.LstdFlags)),
		llm.WithLedger(ledger),
	}
	if cfg.LLMRPS > 0 {
		mws = append([]llm.Middleware{llm.RateLimit(cfg.LLMRPS, 1)}, mws...)
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	planLLM := llm.Wrap(gemini, mws...)

	chatLLM := planLLM
	if cfg.OpenAI.APIKey != "" {
		oa, err := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		chatLLM = llm.Wrap(oa, mws...)
	}

	desc, err := descstore.Open(cfg.DescStorePath)
	if err != nil {
		return nil, err
	}

	registry := openmeteo.DefaultRegistry()
	weather := openmeteo.NewClient()
	eng := engine.New(cfg.ExecTimeout)

	deps := server.Deps{
		Pipeline:   viz.NewPipeline(planLLM, registry, weather, eng),
		Classifier: viz.NewClassifier(chatLLM),
		Explainer:  explain.NewGenerator(planLLM),
		Scenarios:  scenario.NewGenerator(planLLM),
		Chat:       chatLLM,
		Desc:       desc,
	}

	return &App{
		cfg:     cfg,
		srv:     server.New(cfg.Port, server.NewMux(deps, cfg.FrontendURL)),
		ledger:  ledger,
		desc:    desc,
		planLLM: planLLM,
		chatLLM: chatLLM,
	}, nil
}

func (a *App) Start() error {
	return a.srv.Start()
}

// Shutdown stops the server and reports final ledger totals.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.srv.Shutdown(ctx)
	_ = a.planLLM.Close()
	_ = a.chatLLM.Close()
	_ = a.desc.Close()
	for provider, totals := range a.ledger.Totals() {
		log.Printf("token usage %s: requests=%d in=%d out=%d errors=%d",
			provider, totals.Requests, totals.InputTokens, totals.OutputTokens, totals.Errors)
	}
	return err
}
