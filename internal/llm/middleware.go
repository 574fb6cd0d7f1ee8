package llm

import (
	"context"
	"encoding/json"
	"log"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging, the token ledger).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Rate limiting --------

// RateLimit throttles all calls through a token-bucket limiter.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Client
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string     { return c.next.Name() }
func (c *rateLimited) Provider() string { return c.next.Provider() }
func (c *rateLimited) Close() error     { return c.next.Close() }

func (c *rateLimited) Complete(ctx context.Context, req Request) (Response, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return Response{}, err
	}
	return c.next.Complete(ctx, req)
}

func (c *rateLimited) CompleteStream(ctx context.Context, req Request, onChunk func(string)) (Response, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return Response{}, err
	}
	return c.next.CompleteStream(ctx, req, onChunk)
}

func (c *rateLimited) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return nil, Usage{}, err
	}
	return c.next.GenerateJSON(ctx, req)
}

// -------- Logging --------

// WithLogging logs request size, stage and errors. Provide a custom logger or
// nil to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func requestBytes(req Request) int {
	n := 0
	for _, m := range req.Messages {
		n += len(m.Text) + len(m.ImagePNG)
	}
	return n
}

func (l *logging) Name() string     { return l.next.Name() }
func (l *logging) Provider() string { return l.next.Provider() }
func (l *logging) Close() error     { return l.next.Close() }

func (l *logging) Complete(ctx context.Context, req Request) (Response, error) {
	l.log.Printf("LLM request (%s, %s): %d bytes", StageFrom(ctx), l.next.Name(), requestBytes(req))
	resp, err := l.next.Complete(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", StageFrom(ctx), err)
	}
	return resp, err
}

func (l *logging) CompleteStream(ctx context.Context, req Request, onChunk func(string)) (Response, error) {
	l.log.Printf("LLM stream request (%s, %s): %d bytes", StageFrom(ctx), l.next.Name(), requestBytes(req))
	resp, err := l.next.CompleteStream(ctx, req, onChunk)
	if err != nil {
		l.log.Printf("LLM stream error (%s): %v", StageFrom(ctx), err)
	}
	return resp, err
}

func (l *logging) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error) {
	l.log.Printf("LLM json request (%s, %s): %d bytes", StageFrom(ctx), l.next.Name(), requestBytes(req))
	raw, usage, err := l.next.GenerateJSON(ctx, req)
	if err != nil {
		l.log.Printf("LLM json error (%s): %v", StageFrom(ctx), err)
	}
	return raw, usage, err
}
