package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"climaviz/internal/chart"
	"climaviz/internal/dataset"
	"climaviz/internal/jsonutil"
)

// Signature names the exact exported function an artifact must define.
// The synthesis prompt fixes it; Execute invokes it and nothing else.
type Signature string

const (
	SignatureProcessData Signature = "processData"
	SignatureVisualize   Signature = "visualize"
)

// Artifact is model-synthesized source paired with its target
// signature. Executed at most once, never persisted.
type Artifact struct {
	Source    string
	Signature Signature
}

// ErrTimeout is returned when execution exceeds the engine's budget.
var ErrTimeout = errors.New("engine: execution timed out")

// Engine runs artifacts in an isolated VM. A fresh runtime per
// execution: no require, no filesystem, no network, nothing shared
// between runs. The only inputs are the datasets passed in.
type Engine struct {
	timeout time.Duration
}

// New returns an engine with the given per-execution budget. Zero
// means 5 seconds.
func New(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Engine{timeout: timeout}
}

// Execute evaluates the artifact's source, locates its declared
// signature and calls it with the datasets. The exported result is
// returned untyped; callers apply their own shape check.
func (e *Engine) Execute(ctx context.Context, art Artifact, data dataset.Collection) (any, error) {
	src := jsonutil.StripCodeFence(art.Source)
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("engine: empty artifact source")
	}

	vm := goja.New()
	// Swallow console output instead of failing on a stray log call.
	if err := vm.Set("console", map[string]any{
		"log":   func(args ...any) {},
		"warn":  func(args ...any) {},
		"error": func(args ...any) {},
	}); err != nil {
		return nil, fmt.Errorf("engine: init vm: %w", err)
	}

	timer := time.AfterFunc(e.timeout, func() { vm.Interrupt(ErrTimeout) })
	defer timer.Stop()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchDone:
		}
	}()

	if _, err := vm.RunString(src); err != nil {
		return nil, wrapVMErr("evaluate", err)
	}

	fn, ok := goja.AssertFunction(vm.Get(string(art.Signature)))
	if !ok {
		return nil, fmt.Errorf("engine: artifact does not define %s(datasets)", art.Signature)
	}

	result, err := fn(goja.Undefined(), vm.ToValue(data.AsMaps()))
	if err != nil {
		return nil, wrapVMErr("call "+string(art.Signature), err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, fmt.Errorf("engine: %s returned nothing", art.Signature)
	}
	return result.Export(), nil
}

// ExecuteFigure runs a visualize artifact and validates the result as
// a chart figure. A shape mismatch is an error, never a partial figure.
func (e *Engine) ExecuteFigure(ctx context.Context, art Artifact, data dataset.Collection) (chart.Figure, error) {
	if art.Signature != SignatureVisualize {
		return chart.Figure{}, fmt.Errorf("engine: figure execution requires %s, got %s", SignatureVisualize, art.Signature)
	}
	v, err := e.Execute(ctx, art, data)
	if err != nil {
		return chart.Figure{}, err
	}
	fig, err := chart.FromValue(v)
	if err != nil {
		return chart.Figure{}, fmt.Errorf("engine: %s result: %w", art.Signature, err)
	}
	return fig, nil
}

// ExecuteTable runs a processData artifact and checks the result is a
// table-like object: string keys mapping to value slices.
func (e *Engine) ExecuteTable(ctx context.Context, art Artifact, data dataset.Collection) (map[string][]any, error) {
	if art.Signature != SignatureProcessData {
		return nil, fmt.Errorf("engine: table execution requires %s, got %s", SignatureProcessData, art.Signature)
	}
	v, err := e.Execute(ctx, art, data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, fmt.Errorf("engine: %s result is not a table (got %T)", art.Signature, v)
	}
	table := make(map[string][]any, len(obj))
	for key, col := range obj {
		vals, ok := col.([]any)
		if !ok {
			return nil, fmt.Errorf("engine: %s result column %q is not a list", art.Signature, key)
		}
		table[key] = vals
	}
	return table, nil
}

func wrapVMErr(op string, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok {
			return fmt.Errorf("engine: %s: %w", op, v)
		}
		return fmt.Errorf("engine: %s interrupted: %v", op, interrupted.Value())
	}
	return fmt.Errorf("engine: %s: %w", op, err)
}
