package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"climaviz/internal/explain"
	"climaviz/internal/llm"
	"climaviz/internal/persona"
	"climaviz/internal/viz"
)

type handlers struct {
	deps Deps
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	ChatID          string        `json:"chat_id"`
	Message         string        `json:"message"`
	Messages        []chatMessage `json:"messages"`
	ComplexityLevel *int          `json:"complexity_level"`
	UserDescription string        `json:"user_description"`
	Location        string        `json:"location"`
	Topic           string        `json:"topic"`
	Scenario        string        `json:"scenario"`
	Options         []string      `json:"options"`
}

func (req chatRequest) llmMessages() []llm.Message {
	msgs := make([]llm.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		role := llm.RoleUser
		switch m.Role {
		case "assistant":
			role = llm.RoleAssistant
		case "system":
			role = llm.RoleSystem
		}
		msgs = append(msgs, llm.Message{Role: role, Text: m.Content})
	}
	if req.Message != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Text: req.Message})
	}
	return msgs
}

func (req chatRequest) tier() int {
	if req.ComplexityLevel == nil {
		return viz.TierUnresolved
	}
	return *req.ComplexityLevel
}

// visualization runs one pipeline pass. A failed run is not an HTTP
// error; the client receives an empty visualization and carries on with
// a plain-text answer.
func (h *handlers) visualization(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runCtx := viz.NewContext()
	runCtx.ChatID = req.ChatID
	runCtx.Messages = req.llmMessages()
	runCtx.Persona = req.UserDescription
	runCtx.Tier = req.tier()
	runCtx.Location = req.Location
	// A caller-supplied topic skips the need classification.
	runCtx.Topic = req.Topic
	runCtx.Scenario = req.Scenario
	runCtx.Options = req.Options
	runCtx.Lang = langFrom(r)

	result, err := h.deps.Pipeline.Run(r.Context(), runCtx)
	if err != nil {
		log.Printf("server: visualization run %s: %v", runCtx.RunID, err)
		writeJSON(w, http.StatusOK, map[string]any{"visualization": ""})
		return
	}
	if result.Figure.Empty() {
		writeJSON(w, http.StatusOK, map[string]any{"visualization": ""})
		return
	}

	if req.ChatID != "" {
		if err := h.deps.Desc.Put(r.Context(), req.ChatID, result.Datasets.Describe()); err != nil {
			log.Printf("server: store description for %s: %v", req.ChatID, err)
		}
	}

	fig, err := result.Figure.JSON()
	if err != nil {
		log.Printf("server: encode figure for run %s: %v", runCtx.RunID, err)
		writeJSON(w, http.StatusOK, map[string]any{"visualization": ""})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"visualization": string(fig),
		"topic":         result.Topic,
	})
}

type descriptionRequest struct {
	ChatID          string   `json:"chat_id"`
	Scenario        string   `json:"scenario"`
	Options         []string `json:"options"`
	ComplexityLevel int      `json:"complexity_level"`
	Image           string   `json:"image"`
}

// description streams the two-phase chart explanation over SSE.
func (h *handlers) description(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := decodeImage(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode image: %v", err))
		return
	}

	desc, err := h.deps.Desc.Get(r.Context(), req.ChatID)
	if err != nil {
		// Image-only explanation still works without the stored stats.
		log.Printf("server: load description for %s: %v", req.ChatID, err)
	}

	in := explain.Input{
		Tier:            req.ComplexityLevel,
		Scenario:        req.Scenario,
		Options:         req.Options,
		ImagePNG:        img,
		DataDescription: desc,
		Lang:            langFrom(r),
	}
	h.streamSSE(w, r, func(onChunk func(string)) error {
		return h.deps.Explainer.ExplainStream(r.Context(), in, onChunk)
	})
}

// chat streams a plain conversational reply within the scenario frame.
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msgs := req.llmMessages()
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "empty message list")
		return
	}

	tier := 0
	if req.ComplexityLevel != nil && persona.Valid(*req.ComplexityLevel) {
		tier = *req.ComplexityLevel
	}
	system := persona.ExpPrompt(tier)
	if req.Scenario != "" {
		system += fmt.Sprintf("\n\nThe user is deciding on a civic budget-allocation scenario:\n%s\n\nOPTIONS:\n- %s\n\nRemain neutral between the options.",
			req.Scenario, strings.Join(req.Options, "\n- "))
	}
	system += fmt.Sprintf("\n\nAll text shown to the user must be written in %q.", langFrom(r))

	llmReq := llm.Request{
		Messages:    append([]llm.Message{{Role: llm.RoleSystem, Text: system}}, msgs...),
		MaxTokens:   500,
		Temperature: 0.7,
	}
	h.streamSSE(w, r, func(onChunk func(string)) error {
		_, err := h.deps.Chat.CompleteStream(llm.WithStage(r.Context(), "chat"), llmReq, onChunk)
		return err
	})
}

type personaRequest struct {
	Message  string `json:"message"`
	AgeGroup string `json:"age_group"`
}

// persona resolves the complexity tier from a self-description.
func (h *handlers) persona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := req.Message
	if req.AgeGroup != "" {
		text += ". My age group is " + req.AgeGroup
	}
	tier, err := h.deps.Classifier.ClassifyTier(r.Context(), text)
	if err != nil {
		log.Printf("server: persona classification: %v", err)
		writeError(w, http.StatusBadGateway, "could not classify persona")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"complexity_level": tier})
}

type scenarioRequest struct {
	Location string `json:"location"`
	Topic    string `json:"topic"`
}

func (h *handlers) scenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}
	s, err := h.deps.Scenarios.Generate(r.Context(), req.Location, req.Topic, langFrom(r))
	if err != nil {
		log.Printf("server: scenario generation: %v", err)
		writeError(w, http.StatusBadGateway, "could not generate scenario")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// streamSSE runs the producer, forwarding each chunk as an SSE data
// event. Errors after the stream opened become an error event; the
// status line is already on the wire by then.
func (h *handlers) streamSSE(w http.ResponseWriter, r *http.Request, run func(onChunk func(string)) error) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	err := run(func(chunk string) {
		writeSSEData(w, chunk)
		fl.Flush()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("server: stream %s: %v", r.URL.Path, err)
		fmt.Fprint(w, "event: error\ndata: stream failed\n\n")
		fl.Flush()
		return
	}
	fmt.Fprint(w, "event: done\ndata: \n\n")
	fl.Flush()
}

// writeSSEData emits one data event, keeping multi-line chunks intact
// across the one-line-per-field framing.
func writeSSEData(w http.ResponseWriter, text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("missing image")
	}
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 16<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
