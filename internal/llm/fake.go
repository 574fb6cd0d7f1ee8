package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient returns scripted responses in order, for offline/stage testing.
// Each call consumes one queued reply; once the queue is drained, calls return
// an empty JSON object. A queued error is returned in place of its reply.
type FakeClient struct {
	mu      sync.Mutex
	replies []fakeReply
	// Requests records every request received, in call order.
	Requests []Request
	// CallUsage is the usage attached to every successful reply.
	CallUsage Usage
}

type fakeReply struct {
	text string
	err  error
}

func NewFakeClient() *FakeClient {
	return &FakeClient{CallUsage: Usage{InputTokens: 10, OutputTokens: 5}}
}

// Queue appends a scripted text reply.
func (f *FakeClient) Queue(text string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{text: text})
	return f
}

// QueueErr appends a scripted failure.
func (f *FakeClient) QueueErr(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{err: err})
	return f
}

func (f *FakeClient) next(req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if len(f.replies) == 0 {
		return "{}", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	if r.err != nil {
		return "", r.err
	}
	return r.text, nil
}

func (f *FakeClient) Name() string     { return "FakeLLM" }
func (f *FakeClient) Provider() string { return "fake" }
func (f *FakeClient) Close() error     { return nil }

func (f *FakeClient) Complete(ctx context.Context, req Request) (Response, error) {
	text, err := f.next(req)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text, Usage: f.CallUsage}, nil
}

func (f *FakeClient) CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error) {
	text, err := f.next(req)
	if err != nil {
		return Response{}, err
	}
	// Deliver in small increments to exercise streaming consumers.
	const step = 8
	for i := 0; i < len(text); i += step {
		if ctx.Err() != nil {
			return Response{Usage: f.CallUsage}, ctx.Err()
		}
		end := i + step
		if end > len(text) {
			end = len(text)
		}
		if onChunk != nil {
			onChunk(text[i:end])
		}
	}
	return Response{Text: text, Usage: f.CallUsage}, nil
}

func (f *FakeClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error) {
	text, err := f.next(req)
	if err != nil {
		return nil, Usage{}, err
	}
	raw := json.RawMessage(text)
	var scratch any
	if err := json.Unmarshal(raw, &scratch); err != nil {
		return nil, f.CallUsage, ErrInvalidJSON
	}
	return raw, f.CallUsage, nil
}

var _ Client = (*FakeClient)(nil)
