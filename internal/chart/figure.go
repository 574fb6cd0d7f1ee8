package chart

import (
	"encoding/json"
	"fmt"

	"climaviz/internal/jsonutil"
)

// Trace is one plotly trace. Kept loosely typed; plotly accepts a wide
// surface of per-type attributes and the executed code decides which.
type Trace map[string]any

// Layout is the plotly layout object.
type Layout map[string]any

// Figure is a plotly-style figure: trace list plus layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Empty reports whether the figure carries no traces.
func (f Figure) Empty() bool {
	return len(f.Data) == 0
}

// Type returns the trace's plotly type, "" when absent.
func (t Trace) Type() string {
	s, _ := t["type"].(string)
	return s
}

// JSON serializes the figure for transport.
func (f Figure) JSON() ([]byte, error) {
	return jsonutil.MarshalNoEscape(f)
}

// FromJSON deserializes a figure. The bytes must already satisfy the
// figure schema; call Validate when they come from executed code.
func FromJSON(data []byte) (Figure, error) {
	var f Figure
	if err := json.Unmarshal(data, &f); err != nil {
		return Figure{}, fmt.Errorf("chart: decode figure: %w", err)
	}
	if f.Layout == nil {
		f.Layout = Layout{}
	}
	return f, nil
}

// FromValue converts an arbitrary decoded value (typically the return
// of executed code) into a Figure by way of its JSON form.
func FromValue(v any) (Figure, error) {
	if v == nil {
		return Figure{}, fmt.Errorf("chart: nil figure value")
	}
	b, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		return Figure{}, fmt.Errorf("chart: encode figure value: %w", err)
	}
	if err := Validate(b); err != nil {
		return Figure{}, err
	}
	return FromJSON(b)
}
