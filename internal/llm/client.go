package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

var ErrEmptyResponse = errors.New("empty response from LLM")

// PermanentError indicates an error that will not resolve with retries
// (context length exceeded, invalid request, revoked key).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged chat turn. Text and ImagePNG may both be set;
// ImagePNG carries an inline PNG for multimodal calls.
type Message struct {
	Role     Role
	Text     string
	ImagePNG []byte
}

// Request is a single completion request.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
	// JSONOutput asks the provider for a JSON-typed response. Callers parse
	// and validate the payload themselves; providers only enforce the MIME
	// type where they support it.
	JSONOutput bool
}

// Usage is the token accounting reported by the provider for one call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Response is a completed generation plus its reported usage.
type Response struct {
	Text  string
	Usage Usage
}

// Client defines the interface for language-model providers.
// Cross-cutting concerns (logging, rate limiting, the token ledger) are
// applied via Middleware, not inside provider implementations.
type Client interface {
	Name() string
	Provider() string
	Close() error
	Complete(ctx context.Context, req Request) (Response, error)
	// CompleteStream forwards text increments to onChunk as they arrive and
	// returns the assembled response. Canceling ctx stops consumption
	// promptly; no further chunks are delivered after cancellation.
	CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error)
	// GenerateJSON runs a completion that must yield a single JSON value.
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error)
}
