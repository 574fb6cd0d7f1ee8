package chart

// Enhance applies presentation defaults to a validated figure:
// background, margins, grid and a centered title. Values the executed
// code already set are kept.
func Enhance(f Figure) Figure {
	layout := Layout{}
	for k, v := range f.Layout {
		layout[k] = v
	}

	setDefault(layout, "autosize", true)
	setDefault(layout, "paper_bgcolor", "white")
	setDefault(layout, "plot_bgcolor", "white")
	setDefault(layout, "margin", map[string]any{"l": 50, "r": 50, "t": 80, "b": 50})
	setDefault(layout, "font", map[string]any{"size": 12})

	layout["xaxis"] = enhanceAxis(layout["xaxis"])
	layout["yaxis"] = enhanceAxis(layout["yaxis"])
	layout["title"] = enhanceTitle(layout["title"])

	f.Layout = layout
	return f
}

func enhanceAxis(v any) map[string]any {
	axis, _ := v.(map[string]any)
	if axis == nil {
		axis = map[string]any{}
	}
	setDefault(axis, "showgrid", true)
	setDefault(axis, "gridwidth", 1)
	setDefault(axis, "gridcolor", "#E5E5E5")
	setDefault(axis, "zeroline", true)
	setDefault(axis, "zerolinewidth", 1)
	setDefault(axis, "zerolinecolor", "#808080")
	return axis
}

// enhanceTitle centers the title and bumps its font, preserving title
// text whether it arrived as a string or an object.
func enhanceTitle(v any) map[string]any {
	title := map[string]any{}
	switch t := v.(type) {
	case string:
		title["text"] = t
	case map[string]any:
		for k, val := range t {
			title[k] = val
		}
	}
	setDefault(title, "font", map[string]any{"size": 16})
	setDefault(title, "x", 0.5)
	setDefault(title, "xanchor", "center")
	return title
}

func setDefault(m map[string]any, key string, v any) {
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}
