package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API.
// Used for the lightweight classification calls; the multimodal pipeline
// calls run through GeminiClient.
type OpenAIClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAIClient creates a client. If apiKey is empty, it falls back to the
// OPENAI_API_KEY env var. baseURL defaults to the OpenAI endpoint, which
// allows pointing at any compatible service.
func NewOpenAIClient(apiKey, model, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		http:    &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
	}, nil
}

func (c *OpenAIClient) Name() string     { return "OpenAI:" + c.model }
func (c *OpenAIClient) Provider() string { return "openai" }
func (c *OpenAIClient) Close() error     { return nil }

type oaChatReq struct {
	Model          string            `json:"model"`
	Messages       []oaMessage       `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float32           `json:"temperature,omitempty"`
	Stream         bool              `json:"stream,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type oaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

type oaChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage oaUsage `json:"usage"`
}

func (c *OpenAIClient) buildRequest(req Request, stream bool) oaChatReq {
	msgs := make([]oaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		// Image parts are not supported on this path; the multimodal
		// explanation calls go through Gemini.
		if m.Text == "" {
			continue
		}
		msgs = append(msgs, oaMessage{Role: string(m.Role), Content: m.Text})
	}
	out := oaChatReq{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if req.JSONOutput {
		out.ResponseFormat = map[string]string{"type": "json_object"}
	}
	return out
}

func (c *OpenAIClient) post(ctx context.Context, body any) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		err := fmt.Errorf("openai: unexpected status %s: %s", resp.Status, string(body))
		if resp.StatusCode == 400 && strings.Contains(string(body), "context_length_exceeded") {
			return nil, NewPermanentError(err)
		}
		return nil, err
	}
	return resp, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.post(ctx, c.buildRequest(req, false))
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	var out oaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, err
	}
	usage := Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return Response{Usage: usage}, ErrEmptyResponse
	}
	return Response{Text: out.Choices[0].Message.Content, Usage: usage}, nil
}

type oaStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *oaUsage `json:"usage"`
}

// CompleteStream reads the SSE response line by line and forwards content
// deltas. Closing happens on ctx cancellation, which aborts the request.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error) {
	resp, err := c.post(ctx, c.buildRequest(req, true))
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	var out Response
	var b strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var chunk oaStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			out.Usage = Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
		}
		for _, ch := range chunk.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			b.WriteString(ch.Delta.Content)
			if onChunk != nil {
				onChunk(ch.Delta.Content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	out.Text = b.String()
	return out, nil
}

func (c *OpenAIClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error) {
	req.JSONOutput = true
	resp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, resp.Usage, err
	}
	raw := json.RawMessage(resp.Text)
	var scratch any
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return nil, resp.Usage, ErrInvalidJSON
	}
	return raw, resp.Usage, nil
}
