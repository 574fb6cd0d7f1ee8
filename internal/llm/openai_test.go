package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_CompleteReportsUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req oaChatReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) == 0 {
			t.Fatalf("no messages forwarded")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"need_visualization":1,"topic_of_interest":"temperature"}`}},
			},
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 13},
		})
	}))
	defer srv.Close()

	cli, err := NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	raw, usage, err := cli.GenerateJSON(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Text: "classify this"}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if usage.InputTokens != 42 || usage.OutputTokens != 13 {
		t.Fatalf("usage: %+v", usage)
	}
	var out struct {
		Need  int    `json:"need_visualization"`
		Topic string `json:"topic_of_interest"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Need != 1 || out.Topic != "temperature" {
		t.Fatalf("parsed: %+v", out)
	}
}

func TestOpenAIClient_NonJSONRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "sorry, I cannot do that"}},
			},
		})
	}))
	defer srv.Close()

	cli, _ := NewOpenAIClient("k", "m", srv.URL)
	if _, _, err := cli.GenerateJSON(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "x"}}}); err != ErrInvalidJSON {
		t.Fatalf("want ErrInvalidJSON, got %v", err)
	}
}

func TestOpenAIClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
			`data: {"choices":[{"delta":{"content":"lo"}}],"usage":{"prompt_tokens":7,"completion_tokens":2}}`,
			`data: [DONE]`,
		}
		for _, c := range chunks {
			_, _ = w.Write([]byte(c + "\n\n"))
		}
	}))
	defer srv.Close()

	cli, _ := NewOpenAIClient("k", "m", srv.URL)
	var got string
	resp, err := cli.CompleteStream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}}, func(chunk string) {
		got += chunk
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "Hello" || resp.Text != "Hello" {
		t.Fatalf("streamed: chunks=%q final=%q", got, resp.Text)
	}
	if resp.Usage.InputTokens != 7 {
		t.Fatalf("usage: %+v", resp.Usage)
	}
}
