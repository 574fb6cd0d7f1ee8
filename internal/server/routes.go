package server

import (
	"net/http"

	"climaviz/internal/descstore"
	"climaviz/internal/explain"
	"climaviz/internal/llm"
	"climaviz/internal/scenario"
	"climaviz/internal/viz"
)

// Deps collects everything the HTTP handlers need.
type Deps struct {
	Pipeline   *viz.Pipeline
	Classifier *viz.Classifier
	Explainer  *explain.Generator
	Scenarios  *scenario.Generator
	Chat       llm.Client
	Desc       *descstore.Store
}

// NewMux builds the route table and wraps it in CORS.
func NewMux(deps Deps, frontendURL string) http.Handler {
	h := &handlers{deps: deps}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat/visualization", h.visualization)
	mux.HandleFunc("POST /chat/description", h.description)
	mux.HandleFunc("POST /chat/persona", h.persona)
	mux.HandleFunc("POST /chat", h.chat)
	mux.HandleFunc("POST /scenario", h.scenario)
	mux.HandleFunc("GET /healthz", h.health)

	return CORS(mux, frontendURL)
}
