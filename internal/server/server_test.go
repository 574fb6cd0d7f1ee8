package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"climaviz/internal/dataset"
	"climaviz/internal/descstore"
	"climaviz/internal/engine"
	"climaviz/internal/explain"
	"climaviz/internal/llm"
	"climaviz/internal/openmeteo"
	"climaviz/internal/scenario"
	"climaviz/internal/viz"
)

type stubRetriever struct{}

func (stubRetriever) Retrieve(_ context.Context, _ openmeteo.QuerySet) dataset.Collection {
	return dataset.Collection{}
}

func newTestMux(t *testing.T, fake *llm.FakeClient) http.Handler {
	t.Helper()
	store, err := descstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	deps := Deps{
		Pipeline:   viz.NewPipeline(fake, openmeteo.DefaultRegistry(), stubRetriever{}, engine.New(time.Second)),
		Classifier: viz.NewClassifier(fake),
		Explainer:  explain.NewGenerator(fake),
		Scenarios:  scenario.NewGenerator(fake),
		Chat:       fake,
		Desc:       store,
	}
	return NewMux(deps, "http://localhost:3000")
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h := newTestMux(t, llm.NewFakeClient())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body %q", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestMux(t, llm.NewFakeClient())
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("missing allow-methods")
	}
}

func TestPersonaResolvesTier(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`{"complexity_level": 2}`)
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/chat/persona", map[string]any{
		"message":   "I research atmospheric physics",
		"age_group": "30-40",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ComplexityLevel int `json:"complexity_level"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ComplexityLevel != 2 {
		t.Fatalf("tier %d", resp.ComplexityLevel)
	}
	if len(fake.Requests) != 1 {
		t.Fatalf("requests %d", len(fake.Requests))
	}
	if !strings.Contains(fake.Requests[0].Messages[0].Text, "My age group is 30-40") {
		t.Fatalf("age group not forwarded:\n%s", fake.Requests[0].Messages[0].Text)
	}
}

func TestPersonaClassificationFailure(t *testing.T) {
	fake := llm.NewFakeClient().QueueErr(errors.New("upstream down"))
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/chat/persona", map[string]any{"message": "hi"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status %d", w.Code)
	}
}

func TestScenarioGeneration(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`{
		"scenario": "The city council must allocate next year's budget.",
		"budget": 1000000,
		"options": ["Repave roads", "New library wing", "Flood barriers", "School tablets"]
	}`)
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/scenario", map[string]any{
		"location": "Nagoya, Japan",
		"topic":    "precipitation trends",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var s scenario.Scenario
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.Options) != 4 || s.Budget != 1000000 {
		t.Fatalf("scenario %+v", s)
	}
}

func TestScenarioRequiresLocation(t *testing.T) {
	h := newTestMux(t, llm.NewFakeClient())
	w := postJSON(t, h, "/scenario", map[string]any{"topic": "heat"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestVisualizationFailureReturnsEmpty(t *testing.T) {
	fake := llm.NewFakeClient().QueueErr(errors.New("upstream down"))
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/chat/visualization", map[string]any{
		"chat_id":          "chat-1",
		"message":          "show me temperature trends",
		"complexity_level": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp struct {
		Visualization string `json:"visualization"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Visualization != "" {
		t.Fatalf("expected empty visualization, got %q", resp.Visualization)
	}
}

func TestVisualizationNotNeeded(t *testing.T) {
	fake := llm.NewFakeClient().Queue(`{"need_visualization": 0, "topic_of_interest": ""}`)
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/chat/visualization", map[string]any{
		"chat_id":          "chat-2",
		"message":          "hello there",
		"complexity_level": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"visualization":""`) {
		t.Fatalf("body %s", w.Body.String())
	}
	if len(fake.Requests) != 1 {
		t.Fatalf("requests %d, want the need classification only", len(fake.Requests))
	}
}

func TestVisualizationSuppliedTopicSkipsNeedCheck(t *testing.T) {
	fake := llm.NewFakeClient().QueueErr(errors.New("upstream down"))
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/chat/visualization", map[string]any{
		"chat_id":          "chat-6",
		"message":          "how hot will it get?",
		"topic":            "temperature trends",
		"complexity_level": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(fake.Requests) != 1 {
		t.Fatalf("requests %d, want planning only", len(fake.Requests))
	}
	first := fake.Requests[0].Messages[len(fake.Requests[0].Messages)-1].Text
	if strings.Contains(first, "need an environmental data visualization") ||
		strings.Contains(first, "Determine if the given text") {
		t.Fatalf("need classification ran despite supplied topic:\n%s", first)
	}
	if !strings.Contains(first, "temperature trends") {
		t.Fatalf("topic not forwarded to planning:\n%s", first)
	}
}

func TestChatStreamsSSE(t *testing.T) {
	fake := llm.NewFakeClient().Queue("It depends on the season.")
	h := newTestMux(t, fake)

	w := postJSON(t, h, "/chat", map[string]any{
		"chat_id": "chat-3",
		"messages": []map[string]string{
			{"role": "user", "content": "Is summer getting hotter?"},
		},
		"complexity_level": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "data: It depen") {
		t.Fatalf("stream body:\n%s", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Fatalf("missing done event:\n%s", body)
	}
	// System prompt carries the tier persona and the output language.
	sys := fake.Requests[0].Messages[0]
	if sys.Role != llm.RoleSystem || !strings.Contains(sys.Text, `written in "en"`) {
		t.Fatalf("system prompt %+v", sys)
	}
}

func TestDescriptionStreams(t *testing.T) {
	fake := llm.NewFakeClient().
		Queue("1. Read the axes. 2. Note the trend.").
		Queue("The chart shows a steady warming trend.")
	h := newTestMux(t, fake)

	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	w := postJSON(t, h, "/chat/description", map[string]any{
		"chat_id":          "chat-4",
		"complexity_level": 0,
		"image":            "data:image/png;base64," + img,
		"scenario":         "Budget vote next week.",
		"options":          []string{"a", "b", "c", "d"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "warming") {
		t.Fatalf("stream body:\n%s", w.Body.String())
	}
	if len(fake.Requests) != 2 {
		t.Fatalf("requests %d, want plan then generate", len(fake.Requests))
	}
	if got := fake.Requests[0].Messages[1].ImagePNG; string(got) != "png-bytes" {
		t.Fatalf("image not decoded: %q", got)
	}
}

func TestDescriptionRejectsBadImage(t *testing.T) {
	h := newTestMux(t, llm.NewFakeClient())
	w := postJSON(t, h, "/chat/description", map[string]any{
		"chat_id": "chat-5",
		"image":   "%%% not base64 %%%",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestLangFrom(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"ja", "ja"},
		{"ja-JP,ja;q=0.9,en;q=0.8", "ja"},
		{"EN-US", "en"},
		{"*", "en"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Accept-Language", tc.header)
		}
		if got := langFrom(r); got != tc.want {
			t.Errorf("langFrom(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
