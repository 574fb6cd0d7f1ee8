package llm

import (
	"context"
	"encoding/json"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, logging, the token ledger) are applied via Middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string     { return "Gemini:" + g.model }
func (g *GeminiClient) Provider() string { return "gemini" }
func (g *GeminiClient) Close() error     { return nil }

// toContents maps role-tagged messages onto genai contents. System messages
// are collected into the system instruction; assistant turns map to "model".
func toContents(msgs []Message) ([]*genai.Content, *genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if strings.TrimSpace(m.Text) != "" {
				system = append(system, m.Text)
			}
			continue
		}
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		if m.Text != "" {
			parts = append(parts, &genai.Part{Text: m.Text})
		}
		if len(m.ImagePNG) > 0 {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: "image/png", Data: m.ImagePNG},
			})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	var sysContent *genai.Content
	if len(system) > 0 {
		sysContent = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	return contents, sysContent
}

func (g *GeminiClient) generateConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func usageFrom(meta *genai.GenerateContentResponseUsageMetadata) Usage {
	if meta == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int64(meta.PromptTokenCount),
		OutputTokens: int64(meta.CandidatesTokenCount),
	}
}

func (g *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	contents, sys := toContents(req.Messages)
	cfg := g.generateConfig(req)
	cfg.SystemInstruction = sys

	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return Response{}, err
	}
	out := Response{Usage: usageFrom(resp.UsageMetadata)}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return out, ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	out.Text = b.String()
	return out, nil
}

// CompleteStream forwards text increments as they arrive. The iterator stops
// as soon as ctx is canceled, which releases the underlying connection.
func (g *GeminiClient) CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error) {
	contents, sys := toContents(req.Messages)
	cfg := g.generateConfig(req)
	cfg.SystemInstruction = sys

	var out Response
	var b strings.Builder
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			return out, err
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if resp.UsageMetadata != nil {
			out.Usage = usageFrom(resp.UsageMetadata)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text == "" {
				continue
			}
			b.WriteString(p.Text)
			if onChunk != nil {
				onChunk(p.Text)
			}
		}
	}
	out.Text = b.String()
	return out, nil
}

func (g *GeminiClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error) {
	req.JSONOutput = true
	resp, err := g.Complete(ctx, req)
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
