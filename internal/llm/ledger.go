package llm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Ledger is the process-wide token usage counter. It is loaded once at
// process start, updated after every model call, and read at shutdown.
// All mutation happens under a single mutex and the file is replaced
// atomically (tmp + rename), so concurrent pipeline runs cannot lose updates.
type Ledger struct {
	mu   sync.Mutex
	path string
	file ledgerFile
}

type ledgerFile struct {
	UpdatedAt string                    `json:"updated_at"`
	Providers map[string]ProviderTotals `json:"providers"`
}

// ProviderTotals is the accumulated usage for one provider.
type ProviderTotals struct {
	Requests     int64 `json:"requests"`
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	Errors       int64 `json:"errors"`
}

// OpenLedger loads the ledger file at path, starting empty when the file does
// not exist yet. If path is empty the ledger is memory-only.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, file: ledgerFile{Providers: map[string]ProviderTotals{}}}
	if path == "" {
		return l, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &l.file); err != nil {
		return nil, err
	}
	if l.file.Providers == nil {
		l.file.Providers = map[string]ProviderTotals{}
	}
	return l, nil
}

// Record adds one call's reported usage under the provider key and flushes.
func (l *Ledger) Record(provider string, u Usage, hasErr bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.file.Providers[provider]
	p.Requests++
	p.InputTokens += u.InputTokens
	p.OutputTokens += u.OutputTokens
	if hasErr {
		p.Errors++
	}
	l.file.Providers[provider] = p
	l.file.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	l.flushLocked()
}

// Totals returns a copy of the accumulated per-provider usage.
func (l *Ledger) Totals() map[string]ProviderTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]ProviderTotals, len(l.file.Providers))
	for k, v := range l.file.Providers {
		out[k] = v
	}
	return out
}

func (l *Ledger) flushLocked() {
	if l.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	b, err := json.MarshalIndent(l.file, "", "  ")
	if err != nil {
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, l.path)
}

// WithLedger returns a middleware that records every call's reported usage.
func WithLedger(ledger *Ledger) Middleware {
	return func(next Client) Client {
		return &ledgerClient{next: next, ledger: ledger}
	}
}

type ledgerClient struct {
	next   Client
	ledger *Ledger
}

func (c *ledgerClient) Name() string     { return c.next.Name() }
func (c *ledgerClient) Provider() string { return c.next.Provider() }
func (c *ledgerClient) Close() error     { return c.next.Close() }

func (c *ledgerClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.next.Complete(ctx, req)
	c.ledger.Record(c.next.Provider(), resp.Usage, err != nil)
	return resp, err
}

func (c *ledgerClient) CompleteStream(ctx context.Context, req Request, onChunk func(string)) (Response, error) {
	resp, err := c.next.CompleteStream(ctx, req, onChunk)
	c.ledger.Record(c.next.Provider(), resp.Usage, err != nil)
	return resp, err
}

func (c *ledgerClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, Usage, error) {
	raw, usage, err := c.next.GenerateJSON(ctx, req)
	c.ledger.Record(c.next.Provider(), usage, err != nil)
	return raw, usage, err
}
