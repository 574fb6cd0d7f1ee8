package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineFigure() map[string]any {
	return map[string]any{
		"data": []any{
			map[string]any{
				"type": "scatter",
				"mode": "lines",
				"name": "temperature_2m_mean",
				"x":    []any{"2024-06-01", "2024-06-02"},
				"y":    []any{21.5, 23.0},
			},
		},
		"layout": map[string]any{
			"title": "Temperature trends",
		},
	}
}

func TestFromValue_AcceptsValidFigure(t *testing.T) {
	fig, err := FromValue(lineFigure())
	require.NoError(t, err)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "scatter", fig.Data[0].Type())
}

func TestFromValue_RejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"not an object", []any{1, 2}},
		{"missing data", map[string]any{"layout": map[string]any{}}},
		{"data not array", map[string]any{"data": "oops"}},
		{"trace without type", map[string]any{"data": []any{map[string]any{"x": []any{1}}}}},
		{"trace type empty", map[string]any{"data": []any{map[string]any{"type": ""}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromValue(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestFigure_JSONRoundTrip(t *testing.T) {
	fig, err := FromValue(lineFigure())
	require.NoError(t, err)

	b, err := fig.JSON()
	require.NoError(t, err)

	back, err := FromJSON(b)
	require.NoError(t, err)
	assert.Equal(t, fig, back)
}

func TestEnhance_AppliesDefaultsKeepsExisting(t *testing.T) {
	fig, err := FromValue(lineFigure())
	require.NoError(t, err)

	got := Enhance(fig)

	assert.Equal(t, "white", got.Layout["plot_bgcolor"])
	assert.Equal(t, true, got.Layout["autosize"])

	title, ok := got.Layout["title"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Temperature trends", title["text"])
	assert.Equal(t, 0.5, title["x"])

	xaxis, ok := got.Layout["xaxis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "#E5E5E5", xaxis["gridcolor"])
}

func TestEnhance_DoesNotOverrideExplicitStyling(t *testing.T) {
	in := lineFigure()
	in["layout"] = map[string]any{
		"plot_bgcolor": "black",
		"xaxis":        map[string]any{"gridcolor": "#222222"},
	}
	fig, err := FromValue(in)
	require.NoError(t, err)

	got := Enhance(fig)
	assert.Equal(t, "black", got.Layout["plot_bgcolor"])
	xaxis := got.Layout["xaxis"].(map[string]any)
	assert.Equal(t, "#222222", xaxis["gridcolor"])
}

func TestEnhance_LeavesInputLayoutUntouched(t *testing.T) {
	fig, err := FromValue(lineFigure())
	require.NoError(t, err)

	_ = Enhance(fig)
	_, mutated := fig.Layout["plot_bgcolor"]
	assert.False(t, mutated, "Enhance must copy the layout")
}
